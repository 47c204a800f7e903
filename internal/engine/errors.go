package engine

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument means no line of the document produced a single word.
var ErrEmptyDocument = errors.New("document has no words to reveal")

// ShapingError is a line that could not be shaped. It is reported as a
// warning and the line contributes no frames.
type ShapingError struct {
	Line int
	Err  error
}

func (e *ShapingError) Error() string {
	return fmt.Sprintf("line %d skipped: %v", e.Line+1, e.Err)
}

func (e *ShapingError) Unwrap() error { return e.Err }

// RenderError is fatal: the font could not be loaded or a frame could not
// be drawn.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// EncodeError is fatal: the silent video could not be opened, written or
// finalised.
type EncodeError struct {
	Op  string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode: %s: %v", e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// MuxError is fatal: the audio could not be attached to the silent video.
type MuxError struct {
	Err error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("mux: %v", e.Err)
}

func (e *MuxError) Unwrap() error { return e.Err }
