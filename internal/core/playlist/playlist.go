// Package playlist implements the HLS playlist parser (C2) and variant
// selector (C3): parsing master and media M3U8 playlists into the data
// model below, and choosing one variant by resolution/bandwidth preference.
package playlist

// MasterPlaylist enumerates variants at different bitrates/resolutions.
// Order is significant only as a tie-break in variant selection.
type MasterPlaylist struct {
	Variants []Variant
}

// Variant is one bitrate/resolution rendition of the content.
type Variant struct {
	URI        string // absolute, resolved against the playlist's own URL
	Bandwidth  int    // bits per second, required
	Resolution *Resolution
	Codecs     string // opaque, not interpreted by the core
}

// Resolution is a variant's pixel dimensions.
type Resolution struct {
	Width  int
	Height int
}

// MediaPlaylist enumerates the segments of one variant.
type MediaPlaylist struct {
	TargetDuration int
	MediaSequence  int
	Segments       []Segment
	EndList        bool // true means VOD (complete); false means a live-edge snapshot
	Version        int  // informational
}

// ByteRange is a sub-range of bytes within a segment's resource.
type ByteRange struct {
	Length int64
	Offset int64
}

// EncryptionMethod identifies the active key method for a segment.
type EncryptionMethod int

const (
	// EncryptionNone means the segment is not encrypted.
	EncryptionNone EncryptionMethod = iota
	// EncryptionAES128 means AES-128-CBC with a key fetched from KeyURI.
	EncryptionAES128
)

// Encryption is the resolved encryption context for one segment.
type Encryption struct {
	Method EncryptionMethod
	KeyURI string
	IV     []byte // 16 bytes if explicit; nil means derive from AbsoluteIndex
}

// Segment is one entry in a media playlist.
type Segment struct {
	Index         int // 0-based position within Segments (primary ordering key)
	AbsoluteIndex int // MediaSequence + Index; used for IV derivation when IV is absent
	URI           string
	Duration      float64
	ByteRange     *ByteRange
	Encryption    Encryption
}
