package progress

import (
	"fmt"
	"math"
	"time"

	"github.com/telsabots/ytgrab/internal/format"
)

// MinReportInterval is the lower bound between two emitted reports. The
// decimation rule alone can fire several times inside the same rounding
// window; the interval keeps edit calls to the transport bounded.
const MinReportInterval = 5 * time.Second

// Report is one computed progress sample.
type Report struct {
	Transferred int64
	Total       int64
	Percentage  float64
	Speed       int64 // bytes per second
	Elapsed     time.Duration
	Remaining   time.Duration
	Done        bool
}

// Tracker decides whether a progress sample should be surfaced to the
// user. Reports are emitted roughly once per ten seconds of wall time,
// plus a mandatory final report on completion.
type Tracker struct {
	total      int64
	start      time.Time
	lastReport time.Time
	now        func() time.Time
}

// NewTracker starts tracking a transfer of total bytes. A zero total is
// tolerated; percentage and ETA are reported as zero in that case.
func NewTracker(total int64) *Tracker {
	return newTracker(total, time.Now)
}

func newTracker(total int64, now func() time.Time) *Tracker {
	return &Tracker{total: total, start: now(), now: now}
}

// Sample records transferred bytes and reports whether an update should
// be emitted now. The returned Report is only meaningful when the bool
// is true.
func (t *Tracker) Sample(transferred int64) (Report, bool) {
	now := t.now()
	elapsed := now.Sub(t.start)
	done := t.total > 0 && transferred >= t.total

	if !done {
		if math.Round(math.Mod(elapsed.Seconds(), 10)) != 0 {
			return Report{}, false
		}
		if !t.lastReport.IsZero() && now.Sub(t.lastReport) < MinReportInterval {
			return Report{}, false
		}
	}
	t.lastReport = now

	r := Report{
		Transferred: transferred,
		Total:       t.total,
		Elapsed:     elapsed,
		Done:        done,
	}
	if t.total > 0 {
		r.Percentage = float64(transferred) * 100 / float64(t.total)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		r.Speed = int64(float64(transferred) / secs)
	}
	if r.Speed > 0 && t.total > transferred {
		r.Remaining = time.Duration((t.total-transferred)/r.Speed) * time.Second
	}
	return r, true
}

// Text renders the report as the chat progress message body.
func (r Report) Text() string {
	eta := format.Duration(r.Remaining.Milliseconds())
	if eta == "" {
		eta = "0s"
	}
	return fmt.Sprintf("%s \n<b>• Percentage :</b> %.2f%%\n"+
		"<b>✅ COMPLETED :</b> %s\n<b>📂 SIZE :</b> %s\n<b>⚡️ SPEED :</b> %s/s\n<b>⏰ ETA :</b> %s\n",
		format.Bar(r.Percentage),
		r.Percentage,
		format.Bytes(r.Transferred),
		format.Bytes(r.Total),
		format.Bytes(r.Speed),
		eta)
}
