package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Zerolog implements Logger on top of a zerolog.Logger.
type Zerolog struct {
	zl zerolog.Logger
}

// NewConsole returns a timestamped, human-readable logger writing to w at
// level and above.
func NewConsole(w io.Writer, level zerolog.Level) *Zerolog {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return Wrap(zerolog.New(out).Level(level).With().Timestamp().Logger())
}

// Wrap adapts an existing zerolog.Logger.
func Wrap(zl zerolog.Logger) *Zerolog {
	return &Zerolog{zl: zl}
}

func (z *Zerolog) Debug(msg string, fields ...Field) { write(z.zl.Debug(), msg, fields) }
func (z *Zerolog) Info(msg string, fields ...Field)  { write(z.zl.Info(), msg, fields) }
func (z *Zerolog) Warn(msg string, fields ...Field)  { write(z.zl.Warn(), msg, fields) }
func (z *Zerolog) Error(msg string, fields ...Field) { write(z.zl.Error(), msg, fields) }

// With returns a logger whose entries always carry fields.
func (z *Zerolog) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return Wrap(z.zl.With().Fields(pairs(fields)).Logger())
}

// Zerolog returns the wrapped logger.
func (z *Zerolog) Zerolog() zerolog.Logger { return z.zl }

// write sends one entry. ev is nil when the level is disabled.
func write(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(pairs(fields))
	}
	ev.Msg(msg)
}

// pairs flattens fields into the key/value list zerolog's Fields accepts.
func pairs(fields []Field) []interface{} {
	kv := make([]interface{}, 0, 2*len(fields))
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
