package log

// MultiLogger fans events out to several loggers in order, typically a
// SlogAdapter for the terminal and a FileLogger for the record.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		m.Add(l)
	}
	return m
}

// Add appends a logger. It must not be called concurrently with Log.
func (m *MultiLogger) Add(l Logger) {
	if l != nil {
		m.loggers = append(m.loggers, l)
	}
}

// Len returns the number of loggers.
func (m *MultiLogger) Len() int { return len(m.loggers) }

// Log sends the event to every logger.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
