package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/gcottom/semaphore"
	"github.com/telsabots/ytgrab/internal/media"
)

// Cause tags which stage of the pipeline failed.
type Cause string

const (
	CauseSource  Cause = "source"  // reading from the extraction stream
	CauseDisk    Cause = "disk"    // materializing the local artifact
	CauseConvert Cause = "convert" // audio conversion or tagging
	CauseSink    Cause = "sink"    // handing the artifact to the transport
)

// Error is the single failure outcome of a pipeline run.
type Error struct {
	Cause Cause
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transfer failed (%s): %v", e.Cause, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ProgressFunc receives byte counts while the artifact is materialized
// and while it is handed to the sink. Throttling is the receiver's
// concern; the pipeline bounds invocations to about one per second plus
// a final call.
type ProgressFunc func(transferred, total int64, elapsed time.Duration)

// SendFunc delivers the finished artifact to the chat transport.
type SendFunc func(ctx context.Context, path string, size int64) error

// Request describes one variant transfer.
type Request struct {
	Key     int64
	Variant media.Variant
	Title   string
	Author  string

	// Audio requests are converted to mp3 and tagged before sending.
	Audio bool

	// OnArtifact registers the temp file with its owning session before
	// any bytes land on disk. Returning an error aborts the transfer.
	OnArtifact func(path string) error

	OnProgress ProgressFunc
	Send       SendFunc
}

// Pipeline drives a variant's bytes from the extraction source to the
// chat transport, with a bounded number of concurrent transfers and
// unconditional artifact cleanup.
type Pipeline struct {
	Limiter *semaphore.Semaphore
	TempDir string
}

// NewPipeline creates a pipeline allowing maxConcurrent parallel
// transfers into tempDir.
func NewPipeline(tempDir string, maxConcurrent int) *Pipeline {
	return &Pipeline{
		Limiter: semaphore.NewSemaphore(maxConcurrent),
		TempDir: tempDir,
	}
}
