package httpdownload

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func tsPacket(payloadByte byte) []byte {
	packet := make([]byte, tsPacketSize)
	packet[0] = tsSyncByte
	for i := 1; i < len(packet); i++ {
		packet[i] = payloadByte
	}
	return packet
}

func TestDetectFileTypeRecognizesMPEGTS(t *testing.T) {
	content := append(tsPacket(0x11), tsPacket(0x22)...)
	path := writeTempFile(t, "segment.bin", content)

	ext, err := detectFileType(path)
	if err != nil {
		t.Fatalf("detectFileType failed: %v", err)
	}
	if ext != "ts" {
		t.Fatalf("detectFileType() = %q, want ts", ext)
	}
}

func TestDetectFileTypeRejectsLoneSyncByteWithoutSecondPacket(t *testing.T) {
	// A single 0x47 followed by unrelated bytes should not be mistaken for
	// a transport stream when there's no second packet to confirm it.
	path := writeTempFile(t, "notts.bin", []byte{0x47, 0x00, 0x01, 0x02})

	ext, err := detectFileType(path)
	if err != nil {
		t.Fatalf("detectFileType failed: %v", err)
	}
	if ext != "" {
		t.Fatalf("detectFileType() = %q, want empty (not enough bytes to confirm TS)", ext)
	}
}

func TestDetectFileTypeRecognizesISOBMFF(t *testing.T) {
	content := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
	path := writeTempFile(t, "clip.bin", content)

	ext, err := detectFileType(path)
	if err != nil {
		t.Fatalf("detectFileType failed: %v", err)
	}
	if ext != "mp4" {
		t.Fatalf("detectFileType() = %q, want mp4", ext)
	}
}

func TestDetectFileTypeRecognizesWebM(t *testing.T) {
	content := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01, 0x02, 0x03, 0x04}
	path := writeTempFile(t, "clip.bin", content)

	ext, err := detectFileType(path)
	if err != nil {
		t.Fatalf("detectFileType failed: %v", err)
	}
	if ext != "webm" {
		t.Fatalf("detectFileType() = %q, want webm", ext)
	}
}

func TestDetectFileTypeRecognizesJPEGThumbnail(t *testing.T) {
	content := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	path := writeTempFile(t, "thumb.bin", content)

	ext, err := detectFileType(path)
	if err != nil {
		t.Fatalf("detectFileType failed: %v", err)
	}
	if ext != "jpg" {
		t.Fatalf("detectFileType() = %q, want jpg", ext)
	}
}

func TestRenameByMagicBytesFixesMismatchedExtension(t *testing.T) {
	content := append(tsPacket(0x11), tsPacket(0x22)...)
	path := writeTempFile(t, "segment.bin", content)

	got := renameByMagicBytes(path)
	want := filepath.Join(filepath.Dir(path), "segment.ts")
	if got != want {
		t.Fatalf("renameByMagicBytes() = %q, want %q", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("renamed file not found at %q: %v", want, err)
	}
}

func TestRenameByMagicBytesLeavesFragmentExtensionAlone(t *testing.T) {
	content := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
	path := writeTempFile(t, "init.m4s", content)

	got := renameByMagicBytes(path)
	if got != path {
		t.Fatalf("renameByMagicBytes() = %q, want unchanged %q (m4s fragments sniff as mp4)", got, path)
	}
}

func TestRenameByMagicBytesNoOpWhenExtensionAlreadyMatches(t *testing.T) {
	content := append(tsPacket(0x11), tsPacket(0x22)...)
	path := writeTempFile(t, "segment.ts", content)

	got := renameByMagicBytes(path)
	if got != path {
		t.Fatalf("renameByMagicBytes() = %q, want unchanged %q", got, path)
	}
}
