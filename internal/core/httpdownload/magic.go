package httpdownload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// tsSyncByte is the MPEG-TS sync byte (ISO/IEC 13818-1 §2.4.3.2); packets are
// 188 bytes and each one starts with it, which is what tells a raw .ts
// transport stream apart from an arbitrary byte stream that happens to
// start with 0x47.
const (
	tsSyncByte   = 0x47
	tsPacketSize = 188
)

// detectFileType sniffs path's container from its leading bytes and returns
// the extension hlsfetch should use for it (without the dot), or "" if
// nothing is recognized. The plain-HTTP path (C9) has no playlist telling it
// what it fetched, so a URL without — or with a misleading — extension needs
// its container identified from the bytes themselves: the same question the
// job orchestrator answers for the HLS path by always writing .ts pre-remux
// and .mp4 post-remux, just without a trustworthy source naming which one
// came back.
func detectFileType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	header = header[:n]

	if ext := detectVideoContainer(f, header); ext != "" {
		return ext, nil
	}
	return detectImageContainer(header), nil
}

// detectVideoContainer recognizes the container types this tool's own
// HLS/remux pipeline produces or consumes: MPEG-TS, ISO BMFF (MP4/fMP4), and
// WebM/Matroska, the last being common on DASH-adjacent sources that land on
// the plain-HTTP fallback instead of the HLS path.
func detectVideoContainer(f *os.File, header []byte) string {
	switch {
	case len(header) >= 1 && header[0] == tsSyncByte && confirmsTSPattern(f):
		return "ts"
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return "mp4"
	case len(header) >= 4 && bytes.Equal(header[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	default:
		return ""
	}
}

// confirmsTSPattern checks that the sync byte recurs at the next packet
// boundary; a lone leading 0x47 is too common in arbitrary binary data to
// trust by itself.
func confirmsTSPattern(f *os.File) bool {
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, tsPacketSize); err != nil {
		return false
	}
	return buf[0] == tsSyncByte
}

// detectImageContainer covers cover-art/thumbnail assets that sometimes ride
// alongside a stream and get fetched through this same generic downloader.
func detectImageContainer(header []byte) string {
	switch {
	case len(header) >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return "webp"
	case len(header) >= 8 && bytes.Equal(header[0:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png"
	case len(header) >= 6 && (string(header[0:6]) == "GIF87a" || string(header[0:6]) == "GIF89a"):
		return "gif"
	case len(header) >= 3 && bytes.Equal(header[0:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpg"
	default:
		return ""
	}
}

// renameByMagicBytes renames path if its sniffed container disagrees with
// its current extension, returning the final path either way. A mismatch is
// expected whenever a CDN serves a segment or target off an extensionless
// or genericly-named URL (e.g. a signed /fetch?id=… path).
func renameByMagicBytes(path string) string {
	detectedExt, err := detectFileType(path)
	if err != nil || detectedExt == "" {
		return path
	}

	ext := filepath.Ext(path)
	currentExt := strings.TrimPrefix(ext, ".")
	if strings.EqualFold(currentExt, detectedExt) {
		return path
	}
	// .m4s fragments are valid ISO BMFF and sniff as "mp4"; leave the
	// caller's naming alone rather than relabeling a fragment as a full file.
	if strings.EqualFold(currentExt, "m4s") && detectedExt == "mp4" {
		return path
	}

	newPath := path[:len(path)-len(ext)] + "." + detectedExt
	if err := os.Rename(path, newPath); err != nil {
		return path
	}
	return newPath
}
