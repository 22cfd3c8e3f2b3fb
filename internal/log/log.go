package log

// Kv is a helper type for structured logging key-value pairs.
type Kv = map[string]any

// Logger is the interface that the toolkit components use to log.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
	WithValues(values map[string]any) Logger
}

// Noop is a logger that doesn't log anything. It is the default logger
// when a component receives no logger in its configuration.
var Noop Logger = noop(0)

type noop int

func (noop) Infof(format string, args ...any)    {}
func (noop) Warningf(format string, args ...any) {}
func (noop) Errorf(format string, args ...any)   {}
func (noop) Debugf(format string, args ...any)   {}
func (n noop) WithValues(map[string]any) Logger  { return n }
