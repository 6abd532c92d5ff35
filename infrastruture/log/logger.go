package logger

import (
	"errors"
	"io"
	"log"

	"github.com/beka-birhanu/navstudy/config"
)

var ErrNilWriter = errors.New("logger writer is nil")

// Logger prefixes every line with a colored component name and level tag.
type Logger struct {
	l     *log.Logger
	debug bool
}

// New creates a logger for one component.
func New(prefix string, color string, w io.Writer) (*Logger, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	return &Logger{
		l: log.New(w, color+"["+prefix+"]"+config.ColorReset+" ", log.LstdFlags),
	}, nil
}

// SetDebug turns debug output on or off.
func (lg *Logger) SetDebug(on bool) {
	lg.debug = on
}

func (lg *Logger) Info(msg string) {
	lg.l.Printf("%s[INFO]%s %s", config.LogInfoColor, config.LogColorReset, msg)
}

func (lg *Logger) Warning(msg string) {
	lg.l.Printf("%s[WARNING]%s %s", config.LogWarnColor, config.LogColorReset, msg)
}

func (lg *Logger) Error(msg string) {
	lg.l.Printf("%s[ERROR]%s %s", config.LogErrorColor, config.LogColorReset, msg)
}

// Debug is dropped unless debug output is on.
func (lg *Logger) Debug(msg string) {
	if !lg.debug {
		return
	}
	lg.l.Printf("%s[DEBUG]%s %s", config.LogDebugColor, config.LogColorReset, msg)
}
