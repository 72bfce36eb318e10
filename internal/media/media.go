package media

import (
	"context"
	"io"
	"time"
)

// VariantKind identifies one downloadable rendition of a media item.
type VariantKind string

const (
	KindVideoHigh VariantKind = "video-high"
	KindVideoLow  VariantKind = "video-low"
	KindAudio     VariantKind = "audio"
)

// Source produces the byte stream for one variant. Implementations wrap
// the extraction client's stream handle; the returned size may differ
// from the pre-resolved estimate.
type Source interface {
	Stream(ctx context.Context) (io.ReadCloser, int64, error)
}

// Variant is one downloadable rendition. Immutable once resolved. Size
// is an estimate in bytes, zero when the extractor reports none.
type Variant struct {
	Kind   VariantKind
	Size   int64
	Source Source
}

// Metadata is the resolved description of a single media item, created
// once per URL resolution and never mutated afterwards.
type Metadata struct {
	ID         string
	Title      string
	Author     string
	ChannelID  string
	Thumbnail  string
	Duration   time.Duration
	Variants   map[VariantKind]Variant
	ResolvedAt time.Time
}

// PlaylistIter yields metadata for playlist items one at a time, in
// playlist order. Finite, not restartable. Next returns io.EOF after
// the last item.
type PlaylistIter interface {
	Title() string
	Len() int
	Next(ctx context.Context) (*Metadata, error)
}

// Variant returns the variant of the given kind, if resolved.
func (m *Metadata) Variant(kind VariantKind) (Variant, bool) {
	v, ok := m.Variants[kind]
	return v, ok
}

// ChannelURL returns the public link to the uploader's channel, or the
// empty string when the extractor did not report a channel ID.
func (m *Metadata) ChannelURL() string {
	if m.ChannelID == "" {
		return ""
	}
	return "https://www.youtube.com/channel/" + m.ChannelID
}
