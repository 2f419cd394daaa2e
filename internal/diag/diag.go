// Package diag supplies the pass's structured diagnostics: a
// correlation id per invocation and debug/info-level logging of accept
// and decline decisions.
package diag

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger tagged with a per-invocation id.
type Logger struct {
	zerolog.Logger
	InvocationID string
}

// New creates a Logger writing to w (os.Stderr if nil), with a fresh
// invocation id.
func New(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	id := uuid.NewString()
	l := zerolog.New(w).With().Timestamp().Str("invocation", id).Logger()
	return Logger{Logger: l, InvocationID: id}
}

// Accept logs a successful transformation at info level.
func (l Logger) Accept(function string, transform [][]int64) {
	l.Info().Str("function", function).Interface("transform", transform).Msg("loop nest transformed")
}

// Decline logs a pass stage's refusal to transform a nest at debug
// level - not an error, just a record of why the IR was left alone.
func (l Logger) Decline(function string, stage string, err error) {
	l.Debug().Str("function", function).Str("stage", stage).Err(err).Msg("loop nest declined")
}
