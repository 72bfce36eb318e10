package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gcottom/audiometa/v3"
	"github.com/gcottom/go-zaplog"
	"github.com/google/uuid"
	"github.com/telsabots/ytgrab/internal"
	"go.uber.org/zap"
)

// reportEvery bounds how often the pipeline invokes OnProgress while
// copying; the final call after the copy is unconditional.
const reportEvery = time.Second

// Run materializes the variant locally, hands it to the sink, and
// removes the artifact before returning, on every exit path. All
// failures map to *Error with the failing stage tagged.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	p.Limiter.Acquire()
	defer p.Limiter.Release()

	zaplog.InfoC(ctx, "starting transfer", zap.Int64("key", req.Key), zap.String("kind", string(req.Variant.Kind)))

	stream, total, err := req.Variant.Source.Stream(ctx)
	if err != nil {
		return &Error{Cause: CauseSource, Err: err}
	}
	defer stream.Close()
	if total <= 0 {
		total = req.Variant.Size
	}

	if err = os.MkdirAll(p.TempDir, 0755); err != nil {
		return &Error{Cause: CauseDisk, Err: fmt.Errorf("failed to create temp dir: %w", err)}
	}

	var path string
	if req.Audio {
		path = filepath.Join(p.TempDir, fmt.Sprintf("%d-%s.%s", req.Key, internal.SanitizeFileName(req.Title), internal.AudioFormat))
	} else {
		path = filepath.Join(p.TempDir, fmt.Sprintf("%d-%s.mp4", req.Key, uuid.NewString()))
	}
	if req.OnArtifact != nil {
		if err = req.OnArtifact(path); err != nil {
			return &Error{Cause: CauseDisk, Err: err}
		}
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			zaplog.WarnC(ctx, "failed to remove artifact", zap.String("path", path), zap.Error(err))
		}
	}()

	if req.Audio {
		err = p.materializeAudio(ctx, req, stream, total, path)
	} else {
		err = p.materializeVideo(ctx, req, stream, total, path)
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return &Error{Cause: CauseDisk, Err: err}
	}

	zaplog.InfoC(ctx, "artifact ready, sending", zap.Int64("key", req.Key), zap.String("path", path), zap.Int64("size", info.Size()))
	if err = req.Send(ctx, path, info.Size()); err != nil {
		return &Error{Cause: CauseSink, Err: err}
	}
	zaplog.InfoC(ctx, "transfer complete", zap.Int64("key", req.Key))
	return nil
}

// materializeVideo streams directly to the artifact file.
func (p *Pipeline) materializeVideo(ctx context.Context, req Request, stream io.Reader, total int64, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Cause: CauseDisk, Err: err}
	}
	if err = p.copyWithProgress(ctx, f, stream, total, req.OnProgress); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return &Error{Cause: CauseDisk, Err: err}
	}
	return nil
}

// materializeAudio buffers the raw stream, converts it to mp3, tags it
// with title and artist, and writes the artifact.
func (p *Pipeline) materializeAudio(ctx context.Context, req Request, stream io.Reader, total int64, path string) error {
	raw := new(bytes.Buffer)
	if err := p.copyWithProgress(ctx, raw, stream, total, req.OnProgress); err != nil {
		return err
	}

	converted, err := internal.ConvertFile(ctx, raw.Bytes())
	if err != nil {
		return &Error{Cause: CauseConvert, Err: fmt.Errorf("failed to convert audio: %w", err)}
	}

	tag, err := audiometa.OpenTag(bytes.NewReader(converted))
	if err != nil {
		return &Error{Cause: CauseConvert, Err: fmt.Errorf("failed to open tag: %w", err)}
	}
	tag.SetTitle(req.Title)
	tag.SetArtist(req.Author)
	out := new(bytes.Buffer)
	if err = tag.Save(out); err != nil {
		return &Error{Cause: CauseConvert, Err: fmt.Errorf("failed to save tag: %w", err)}
	}

	if err = os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return &Error{Cause: CauseDisk, Err: err}
	}
	return nil
}

// copyWithProgress pumps stream into dst, distinguishing read failures
// (source) from write failures (disk) and honoring cancellation.
func (p *Pipeline) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, onProgress ProgressFunc) error {
	start := time.Now()
	lastReport := start
	buf := make([]byte, 64*1024)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return &Error{Cause: CauseSource, Err: err}
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return &Error{Cause: CauseDisk, Err: werr}
			}
			written += int64(n)
			if onProgress != nil && time.Since(lastReport) >= reportEvery {
				lastReport = time.Now()
				onProgress(written, total, time.Since(start))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return &Error{Cause: CauseSource, Err: rerr}
		}
	}
	if onProgress != nil {
		onProgress(written, total, time.Since(start))
	}
	return nil
}
