package harness

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// TimingEnv names an environment variable that enables timing output
// when no path is configured.
const TimingEnv = "VHDLMAKE_TIMING_JSONL"

type timingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Module     string  `json:"module,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// TimingRecorder appends one JSON line per harness stage. A nil or
// disabled recorder ignores every call.
type TimingRecorder struct {
	enabled bool
	start   time.Time
	mu      sync.Mutex
	file    *os.File
	enc     *json.Encoder
	err     error
}

// NewTimingRecorder writes to path, or to $VHDLMAKE_TIMING_JSONL when path
// is empty. With neither set the recorder is disabled.
func NewTimingRecorder(path string) *TimingRecorder {
	tr := &TimingRecorder{start: time.Now()}
	if path == "" {
		path = os.Getenv(TimingEnv)
	}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *TimingRecorder) Enabled() bool {
	return tr != nil && tr.enabled
}

func (tr *TimingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *TimingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

func (tr *TimingRecorder) record(phase, kind, module, status string, start time.Time, duration time.Duration) {
	if !tr.Enabled() {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := timingEvent{
		Phase:      phase,
		Kind:       kind,
		Module:     module,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	_ = tr.enc.Encode(event)
	tr.mu.Unlock()
}

// RecordStage logs one stage (clean, build, simulate, scrape) of a test.
func (tr *TimingRecorder) RecordStage(phase, module, status string, start time.Time) {
	tr.record(phase, "stage", module, status, start, time.Since(start))
}

// RecordSuite logs the whole run.
func (tr *TimingRecorder) RecordSuite(status string, start time.Time) {
	tr.record("total", "suite", "", status, start, time.Since(start))
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
