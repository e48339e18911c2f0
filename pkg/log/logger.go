package log

// Logger receives catalog events. Log runs on the identification path, so
// implementations must be safe for concurrent use and must not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// CategoryLogger forwards only events of selected categories. Telemetry
// identify events arrive at packet rate; an operator log usually keeps
// commands, limits changes and errors only.
type CategoryLogger struct {
	next Logger
	keep map[Category]bool
}

// NewCategoryLogger returns a logger passing events of the given
// categories to next. With no categories every event passes.
func NewCategoryLogger(next Logger, categories ...Category) *CategoryLogger {
	keep := make(map[Category]bool, len(categories))
	for _, c := range categories {
		keep[c] = true
	}
	return &CategoryLogger{next: next, keep: keep}
}

// Log forwards event if its category is selected.
func (l *CategoryLogger) Log(event Event) {
	if len(l.keep) > 0 && !l.keep[event.Category] {
		return
	}
	l.next.Log(event)
}

var (
	_ Logger = NoopLogger{}
	_ Logger = (*CategoryLogger)(nil)
)
