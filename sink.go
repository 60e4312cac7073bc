package toolscope

// Sink receives finished execution records. Submission must not block the
// calling tool path and must never panic; delivery is best-effort.
type Sink interface {
	SendAsync(rec Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec Record)

// SendAsync calls the underlying function.
func (f SinkFunc) SendAsync(rec Record) {
	f(rec)
}

// MultiSink fans one record out to several sinks in order.
type MultiSink []Sink

// SendAsync submits the record to each sink.
func (m MultiSink) SendAsync(rec Record) {
	for _, s := range m {
		if s != nil {
			s.SendAsync(rec)
		}
	}
}

type noopSink struct{}

func (noopSink) SendAsync(Record) {}

// NoopSink discards all records.
var NoopSink Sink = noopSink{}
