package statsd

import (
	"maps"
	"sync"
	"time"
)

// Kind identifies a recorded metric type.
type Kind string

// Metric kinds.
const (
	KindCount  Kind = "count"
	KindGauge  Kind = "gauge"
	KindTiming Kind = "timing"
)

// Sample is one metric captured by a Recorder.
type Sample struct {
	Kind  Kind
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory Sink for asserting emitted metrics.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Count implements Sink.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add(Sample{Kind: KindCount, Name: name, Value: float64(value), Tags: maps.Clone(tags)})
}

// Gauge implements Sink.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add(Sample{Kind: KindGauge, Name: name, Value: value, Tags: maps.Clone(tags)})
}

// Timing implements Sink. Values are stored in milliseconds.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	r.add(Sample{Kind: KindTiming, Name: name, Value: ms, Tags: maps.Clone(tags)})
}

func (r *Recorder) add(s Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Find returns samples with the given name.
func (r *Recorder) Find(name string) []Sample {
	var out []Sample
	for _, s := range r.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops all recorded samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}
