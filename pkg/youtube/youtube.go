package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gcottom/go-zaplog"
	"github.com/kkdai/youtube/v2"
	"github.com/telsabots/ytgrab/internal/media"
	"go.uber.org/zap"
)

// ErrNoVariants is returned when a video resolves but exposes no
// downloadable formats at all.
var ErrNoVariants = errors.New("no downloadable variants available")

// Resolve extracts metadata and the downloadable variants for a single
// video URL or ID.
func (s *Client) Resolve(ctx context.Context, url string) (*media.Metadata, error) {
	zaplog.InfoC(ctx, "resolving video", zap.String("url", url))
	video, err := s.YTClient.GetVideoContext(ctx, url)
	if err != nil {
		zaplog.ErrorC(ctx, "failed to get video info", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	meta := s.buildMetadata(video)
	if len(meta.Variants) == 0 {
		zaplog.ErrorC(ctx, "video has no downloadable variants", zap.String("id", video.ID))
		return nil, ErrNoVariants
	}
	zaplog.InfoC(ctx, "video resolved", zap.String("id", video.ID), zap.String("title", video.Title), zap.Int("variants", len(meta.Variants)))
	return meta, nil
}

// ResolvePlaylist resolves the playlist index and returns a lazy
// iterator; per-item metadata is fetched one video at a time.
func (s *Client) ResolvePlaylist(ctx context.Context, url string) (media.PlaylistIter, error) {
	zaplog.InfoC(ctx, "resolving playlist", zap.String("url", url))
	playlist, err := s.YTClient.GetPlaylistContext(ctx, url)
	if err != nil {
		zaplog.ErrorC(ctx, "failed to get playlist", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}
	zaplog.InfoC(ctx, "playlist resolved", zap.String("id", playlist.ID), zap.Int("count", len(playlist.Videos)))
	return &playlistIterator{client: s, title: playlist.Title, entries: playlist.Videos}, nil
}

func (s *Client) buildMetadata(video *youtube.Video) *media.Metadata {
	meta := &media.Metadata{
		ID:         video.ID,
		Title:      video.Title,
		Author:     video.Author,
		ChannelID:  video.ChannelID,
		Thumbnail:  bestThumbnail(video.Thumbnails),
		Duration:   video.Duration,
		Variants:   make(map[media.VariantKind]media.Variant),
		ResolvedAt: time.Now(),
	}

	withSound := video.Formats.Type("video").WithAudioChannels()
	if f := getBestVideoFormat(withSound); f != nil {
		meta.Variants[media.KindVideoHigh] = s.variant(media.KindVideoHigh, video, f)
	}
	if low := withSound.Quality("360p"); len(low) > 0 {
		meta.Variants[media.KindVideoLow] = s.variant(media.KindVideoLow, video, &low[0])
	}
	if f := getBestAudioFormat(video.Formats.Type("audio")); f != nil {
		meta.Variants[media.KindAudio] = s.variant(media.KindAudio, video, f)
	}
	return meta
}

func (s *Client) variant(kind media.VariantKind, video *youtube.Video, format *youtube.Format) media.Variant {
	return media.Variant{
		Kind:   kind,
		Size:   format.ContentLength,
		Source: &streamSource{client: s.YTClient, video: video, format: format},
	}
}

// streamSource defers opening the download stream until the transfer
// pipeline asks for it.
type streamSource struct {
	client *youtube.Client
	video  *youtube.Video
	format *youtube.Format
}

func (s *streamSource) Stream(ctx context.Context) (io.ReadCloser, int64, error) {
	return s.client.GetStreamContext(ctx, s.video, s.format)
}

type playlistIterator struct {
	client  *Client
	title   string
	entries []*youtube.PlaylistEntry
	pos     int
}

func (it *playlistIterator) Title() string { return it.title }
func (it *playlistIterator) Len() int      { return len(it.entries) }

func (it *playlistIterator) Next(ctx context.Context) (*media.Metadata, error) {
	if it.pos >= len(it.entries) {
		return nil, io.EOF
	}
	entry := it.entries[it.pos]
	it.pos++
	video, err := it.client.YTClient.VideoFromPlaylistEntryContext(ctx, entry)
	if err != nil {
		zaplog.ErrorC(ctx, "failed to resolve playlist entry", zap.String("id", entry.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to resolve playlist entry %s: %w", entry.ID, err)
	}
	return it.client.buildMetadata(video), nil
}

func bestThumbnail(thumbnails youtube.Thumbnails) string {
	best := ""
	maxWidth := uint(0)
	for _, t := range thumbnails {
		if t.Width >= maxWidth {
			maxWidth = t.Width
			best = t.URL
		}
	}
	return best
}

func getBestVideoFormat(formats youtube.FormatList) *youtube.Format {
	var bestFormat *youtube.Format
	maxHeight := 0
	for _, format := range formats {
		if format.Height > maxHeight {
			best := format
			bestFormat = &best
			maxHeight = format.Height
		}
	}
	return bestFormat
}

func getBestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var bestFormat *youtube.Format
	maxBitrate := 0
	for _, format := range formats {
		if format.Bitrate > maxBitrate {
			best := format
			bestFormat = &best
			maxBitrate = format.Bitrate
		}
	}
	return bestFormat
}
