package playlist

import (
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
)

var (
	bandwidthRegex  = regexp.MustCompile(`BANDWIDTH=(\d+)`)
	resolutionRegex = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)
	codecsRegex     = regexp.MustCompile(`CODECS="([^"]+)"`)
	extinfRegex     = regexp.MustCompile(`^#EXTINF:([\d.]+),?(.*)$`)
	byteRangeRegex  = regexp.MustCompile(`^#EXT-X-BYTERANGE:(\d+)(?:@(\d+))?`)
	keyMethodRegex  = regexp.MustCompile(`METHOD=([^,]+)`)
	keyURIRegex     = regexp.MustCompile(`URI="([^"]+)"`)
	keyIVRegex      = regexp.MustCompile(`IV=0[xX]([0-9A-Fa-f]+)`)
	mediaSeqRegex   = regexp.MustCompile(`^#EXT-X-MEDIA-SEQUENCE:(\d+)`)
	versionRegex    = regexp.MustCompile(`^#EXT-X-VERSION:(\d+)`)
)

// keyContext tracks the active #EXT-X-KEY tag while scanning a media
// playlist; it is purely parser-local state and never escapes into the
// Segment values produced.
type keyContext struct {
	active bool
	method string
	keyURI string
	iv     []byte
}

// ParseResult is either a MasterPlaylist or a MediaPlaylist, never both.
type ParseResult struct {
	Master *MasterPlaylist
	Media  *MediaPlaylist
}

// Parse consumes M3U8 text fetched from baseURL and produces a
// MasterPlaylist or a MediaPlaylist. baseURL is used to resolve relative
// URIs found in the playlist.
func Parse(content, baseURL string) (*ParseResult, error) {
	lines := strings.Split(content, "\n")

	firstNonEmpty := -1
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		firstNonEmpty = i
		break
	}
	if firstNonEmpty == -1 || strings.TrimSpace(lines[firstNonEmpty]) != "#EXTM3U" {
		return nil, hlserr.NewParseError(1, "missing #EXTM3U header")
	}

	var variants []Variant
	var segments []Segment
	isMaster := false
	mediaSequence := 0
	mediaSequenceSet := false
	targetDuration := 0
	version := 0
	endList := false

	var pendingVariant *Variant
	var pendingDuration float64
	var havePendingSegment bool
	var pendingByteRangeLength int64
	var pendingByteRangeOffset *int64 // nil means "inherit from previous segment on this resource"
	var havePendingByteRange bool
	var lastByteRangeEnd int64
	var lastByteRangeURI string
	var ctx keyContext
	segIndex := 0

	for i := firstNonEmpty; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		switch {
		case line == "#EXTM3U":
			continue

		case strings.HasPrefix(line, "#EXT-X-VERSION:"):
			if m := versionRegex.FindStringSubmatch(line); m != nil {
				version, _ = strconv.Atoi(m[1])
			}

		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			if m := mediaSeqRegex.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[1])
				if !mediaSequenceSet && len(segments) == 0 {
					mediaSequence = n
					mediaSequenceSet = true
				}
			}

		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:")); err == nil {
				targetDuration = v
			}

		case strings.HasPrefix(line, "#EXT-X-ENDLIST"):
			endList = true

		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			isMaster = true
			v := Variant{}
			if m := bandwidthRegex.FindStringSubmatch(line); m != nil {
				v.Bandwidth, _ = strconv.Atoi(m[1])
			}
			if m := resolutionRegex.FindStringSubmatch(line); m != nil {
				w, _ := strconv.Atoi(m[1])
				h, _ := strconv.Atoi(m[2])
				v.Resolution = &Resolution{Width: w, Height: h}
			}
			if m := codecsRegex.FindStringSubmatch(line); m != nil {
				v.Codecs = m[1]
			}
			pendingVariant = &v

		case strings.HasPrefix(line, "#EXT-X-KEY:"):
			method := "NONE"
			if m := keyMethodRegex.FindStringSubmatch(line); m != nil {
				method = strings.TrimSpace(m[1])
			}
			switch strings.ToUpper(method) {
			case "NONE":
				ctx = keyContext{}
			case "AES-128":
				ctx = keyContext{active: true, method: "AES-128"}
				if m := keyURIRegex.FindStringSubmatch(line); m != nil {
					ctx.keyURI = resolveURL(baseURL, m[1])
				}
				if m := keyIVRegex.FindStringSubmatch(line); m != nil {
					hexStr := m[1]
					if len(hexStr)%2 == 1 {
						hexStr = "0" + hexStr
					}
					if iv, err := hex.DecodeString(hexStr); err == nil && len(iv) == 16 {
						ctx.iv = iv
					}
				}
			default:
				ctx = keyContext{active: true, method: method}
			}

		case strings.HasPrefix(line, "#EXT-X-BYTERANGE:"):
			if m := byteRangeRegex.FindStringSubmatch(line); m != nil {
				pendingByteRangeLength, _ = strconv.ParseInt(m[1], 10, 64)
				pendingByteRangeOffset = nil
				if m[2] != "" {
					off, _ := strconv.ParseInt(m[2], 10, 64)
					pendingByteRangeOffset = &off
				}
				havePendingByteRange = true
			}

		case extinfRegex.MatchString(line):
			m := extinfRegex.FindStringSubmatch(line)
			pendingDuration, _ = strconv.ParseFloat(m[1], 64)
			havePendingSegment = true

		case strings.HasPrefix(line, "#"):
			// Unrecognized #EXT- tag or comment: ignored.
			continue

		default:
			// URI line: attaches to whatever tag most recently opened it.
			resolved := resolveURL(baseURL, line)
			if pendingVariant != nil {
				pendingVariant.URI = resolved
				variants = append(variants, *pendingVariant)
				pendingVariant = nil
			} else if havePendingSegment {
				enc := Encryption{Method: EncryptionNone}
				if ctx.active {
					if ctx.method != "AES-128" {
						return nil, hlserr.NewUnsupportedEncryption(ctx.method)
					}
					enc = Encryption{Method: EncryptionAES128, KeyURI: ctx.keyURI, IV: ctx.iv}
				}

				var byteRange *ByteRange
				if havePendingByteRange {
					offset := lastByteRangeEnd
					if lastByteRangeURI != resolved {
						offset = 0
					}
					if pendingByteRangeOffset != nil {
						offset = *pendingByteRangeOffset
					}
					byteRange = &ByteRange{Length: pendingByteRangeLength, Offset: offset}
				}

				seg := Segment{
					Index:         segIndex,
					AbsoluteIndex: mediaSequence + segIndex,
					URI:           resolved,
					Duration:      pendingDuration,
					ByteRange:     byteRange,
					Encryption:    enc,
				}
				segments = append(segments, seg)
				if byteRange != nil {
					lastByteRangeEnd = byteRange.Offset + byteRange.Length
					lastByteRangeURI = resolved
				} else {
					lastByteRangeEnd = 0
					lastByteRangeURI = ""
				}
				segIndex++
				havePendingSegment = false
				havePendingByteRange = false
			}
		}
	}

	if isMaster {
		return &ParseResult{Master: &MasterPlaylist{Variants: variants}}, nil
	}

	return &ParseResult{Media: &MediaPlaylist{
		TargetDuration: targetDuration,
		MediaSequence:  mediaSequence,
		Segments:       segments,
		EndList:        endList,
		Version:        version,
	}}, nil
}

// resolveURL resolves a possibly-relative URI against the playlist's own URL.
func resolveURL(base, ref string) string {
	if base == "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
