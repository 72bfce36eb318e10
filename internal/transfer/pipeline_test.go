package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/gcottom/go-zaplog"

	"github.com/telsabots/ytgrab/internal/media"
)

func testCtx() context.Context {
	return zaplog.CreateAndInject(context.Background())
}

type fakeSource struct {
	data    []byte
	err     error // returned after data is exhausted, instead of EOF
	openErr error
}

type errAfterReader struct {
	r   io.Reader
	err error
}

func (e *errAfterReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF && e.err != nil {
		return n, e.err
	}
	return n, err
}

func (s *fakeSource) Stream(ctx context.Context) (io.ReadCloser, int64, error) {
	if s.openErr != nil {
		return nil, 0, s.openErr
	}
	var r io.Reader = bytes.NewReader(s.data)
	if s.err != nil {
		r = &errAfterReader{r: r, err: s.err}
	}
	return io.NopCloser(r), int64(len(s.data)), nil
}

func testRequest(src media.Source, send SendFunc) Request {
	return Request{
		Key:     42,
		Variant: media.Variant{Kind: media.KindVideoHigh, Size: 0, Source: src},
		Title:   "Test Video",
		Author:  "Test Author",
		Send:    send,
	}
}

func TestPipeline_SuccessDeliversAndCleansUp(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)
	payload := bytes.Repeat([]byte("x"), 200*1024)

	var sentPath string
	var sentSize int64
	req := testRequest(&fakeSource{data: payload}, func(ctx context.Context, path string, size int64) error {
		sentPath = path
		sentSize = size
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !bytes.Equal(data, payload) {
			t.Error("sink received different bytes than the source produced")
		}
		return nil
	})

	if err := pipeline.Run(testCtx(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sentSize != int64(len(payload)) {
		t.Errorf("sent size = %d, expected %d", sentSize, len(payload))
	}
	if _, err := os.Stat(sentPath); !os.IsNotExist(err) {
		t.Errorf("artifact %s still exists after successful run", sentPath)
	}
}

func TestPipeline_SourceFailureCleansUpPartial(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)

	var artifact string
	req := testRequest(
		&fakeSource{data: bytes.Repeat([]byte("y"), 100*1024), err: errors.New("connection reset")},
		func(ctx context.Context, path string, size int64) error {
			t.Error("sink must not be invoked after a source failure")
			return nil
		},
	)
	req.OnArtifact = func(path string) error {
		artifact = path
		return nil
	}

	err := pipeline.Run(testCtx(), req)
	var terr *Error
	if !errors.As(err, &terr) || terr.Cause != CauseSource {
		t.Fatalf("Run = %v, expected source-tagged transfer error", err)
	}
	if artifact == "" {
		t.Fatal("OnArtifact was not invoked")
	}
	if _, statErr := os.Stat(artifact); !os.IsNotExist(statErr) {
		t.Errorf("partial artifact %s still exists after failure", artifact)
	}
}

func TestPipeline_SinkFailureCleansUp(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)

	var artifact string
	req := testRequest(&fakeSource{data: []byte("payload")}, func(ctx context.Context, path string, size int64) error {
		artifact = path
		return errors.New("upload rejected")
	})

	err := pipeline.Run(testCtx(), req)
	var terr *Error
	if !errors.As(err, &terr) || terr.Cause != CauseSink {
		t.Fatalf("Run = %v, expected sink-tagged transfer error", err)
	}
	if _, statErr := os.Stat(artifact); !os.IsNotExist(statErr) {
		t.Errorf("artifact %s still exists after sink failure", artifact)
	}
}

func TestPipeline_StreamOpenFailure(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)
	req := testRequest(&fakeSource{openErr: errors.New("age restricted")}, nil)

	err := pipeline.Run(testCtx(), req)
	var terr *Error
	if !errors.As(err, &terr) || terr.Cause != CauseSource {
		t.Fatalf("Run = %v, expected source-tagged transfer error", err)
	}
}

func TestPipeline_CancelledContextAborts(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)
	ctx, cancel := context.WithCancel(testCtx())
	cancel()

	req := testRequest(&fakeSource{data: []byte("payload")}, func(ctx context.Context, path string, size int64) error {
		t.Error("sink must not run for a cancelled transfer")
		return nil
	})

	err := pipeline.Run(ctx, req)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, expected context.Canceled", err)
	}
}

func TestPipeline_OnArtifactRejectionAborts(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)
	req := testRequest(&fakeSource{data: []byte("payload")}, func(ctx context.Context, path string, size int64) error {
		t.Error("sink must not run when artifact registration fails")
		return nil
	})
	req.OnArtifact = func(path string) error { return errors.New("artifact already active") }

	if err := pipeline.Run(testCtx(), req); err == nil {
		t.Fatal("expected error when artifact registration is rejected")
	}
}

func TestPipeline_FinalProgressReport(t *testing.T) {
	pipeline := NewPipeline(t.TempDir(), 1)
	payload := bytes.Repeat([]byte("z"), 50*1024)

	var lastTransferred, lastTotal int64
	var lastElapsed time.Duration
	calls := 0
	req := testRequest(&fakeSource{data: payload}, func(ctx context.Context, path string, size int64) error {
		return nil
	})
	req.OnProgress = func(transferred, total int64, elapsed time.Duration) {
		calls++
		lastTransferred, lastTotal, lastElapsed = transferred, total, elapsed
	}

	if err := pipeline.Run(testCtx(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected at least the final progress call")
	}
	if lastTransferred != int64(len(payload)) || lastTotal != int64(len(payload)) {
		t.Errorf("final report = %d/%d, expected %d/%d", lastTransferred, lastTotal, len(payload), len(payload))
	}
	if lastElapsed < 0 {
		t.Errorf("elapsed = %v, expected non-negative", lastElapsed)
	}
}
