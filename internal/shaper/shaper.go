// Package shaper turns a logical line of Arabic-script text into the
// display-ordered string a left-to-right drawing primitive can paint as is.
package shaper

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("line is not valid UTF-8")

// Error is a line that could not be reshaped or reordered. Callers treat the
// line as having no words.
type Error struct {
	Line string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("shape %q: %v", truncate(e.Line, 32), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options tunes ShapeWith. The zero value drops harakat before joining.
type Options struct {
	KeepHarakat bool
}

// ShapedLine is a line after joining and bidi reordering. Words are split from
// the display-ordered text, so Words[0] is the leftmost word on screen.
type ShapedLine struct {
	Source string
	Text   string
	Words  []string
}

func (l ShapedLine) Empty() bool { return len(l.Words) == 0 }

// Shape reshapes and reorders line with the default Options.
func Shape(line string) (ShapedLine, error) {
	return ShapeWith(line, Options{})
}

// ShapeWith reshapes and reorders line. Empty and whitespace-only lines give a
// ShapedLine with no words and a nil error; malformed lines give an empty
// ShapedLine and an *Error.
func ShapeWith(line string, opts Options) (ShapedLine, error) {
	out := ShapedLine{Source: line}
	if !utf8.ValidString(line) {
		return out, &Error{Line: line, Err: ErrInvalidUTF8}
	}

	text := line
	if !opts.KeepHarakat {
		text = StripHarakat(text)
	}
	if strings.TrimSpace(text) == "" {
		return out, nil
	}

	display, err := Reorder(Reshape(text))
	if err != nil {
		return out, &Error{Line: line, Err: err}
	}

	out.Text = display
	out.Words = strings.Fields(display)
	return out, nil
}

// harakat lists the Arabic vowel signs, shadda, sukun, tanwin and Quranic
// annotation marks. Most of them belong to the Inherited script, so
// unicode.Arabic does not cover them.
var harakat = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061A, Stride: 1},
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06DC, Stride: 1},
		{Lo: 0x06DF, Hi: 0x06E8, Stride: 1},
		{Lo: 0x06EA, Hi: 0x06ED, Stride: 1},
		{Lo: 0x08D4, Hi: 0x08E1, Stride: 1},
		{Lo: 0x08E3, Hi: 0x08FF, Stride: 1},
	},
}

// IsHarakat reports whether r is an Arabic combining mark.
func IsHarakat(r rune) bool {
	return unicode.Is(harakat, r)
}

// StripHarakat removes every Arabic combining mark from s.
func StripHarakat(s string) string {
	return strings.Map(func(r rune) rune {
		if IsHarakat(r) {
			return -1
		}
		return r
	}, s)
}

// Reshape replaces Arabic letters with their contextual presentation forms and
// folds lam+alef into the mandatory ligatures. Combining marks are skipped
// when looking for neighbours. A zero width joiner forces a join on both
// sides and is dropped from the output. Text stays in logical order.
func Reshape(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == zwj {
			continue
		}
		f, ok := joiningOf(r)
		if !ok {
			out = append(out, r)
			continue
		}

		prev := neighbour(runes, i, -1)
		connectsBefore := f.joinsBefore() && prev >= 0 && joinsAfterAt(runes, prev)

		if r == lam {
			if next := neighbour(runes, i, 1); next >= 0 {
				if lig, ok := lamAlef[runes[next]]; ok {
					if connectsBefore {
						out = append(out, lig[1])
					} else {
						out = append(out, lig[0])
					}
					// marks between lam and alef stay attached to the ligature
					out = append(out, runes[i+1:next]...)
					i = next
					continue
				}
			}
		}

		next := neighbour(runes, i, 1)
		connectsAfter := f.joinsAfter() && next >= 0 && joinsBeforeAt(runes, next)

		var form rune
		switch {
		case connectsBefore && connectsAfter:
			form = f.medial
		case connectsBefore:
			form = f.final
		case connectsAfter:
			form = f.initial
		default:
			form = f.isolated
		}
		if form == 0 {
			// no presentation form exists for this position
			form = r
		}
		out = append(out, form)
	}
	return string(out)
}

func joinsAfterAt(runes []rune, i int) bool {
	f, _ := joiningOf(runes[i])
	return f.joinsAfter()
}

func joinsBeforeAt(runes []rune, i int) bool {
	f, _ := joiningOf(runes[i])
	return f.joinsBefore()
}

// neighbour returns the index of the closest non-mark rune in direction dir,
// or -1.
func neighbour(runes []rune, i, dir int) int {
	for j := i + dir; j >= 0 && j < len(runes); j += dir {
		if !unicode.Is(unicode.Mn, runes[j]) {
			return j
		}
	}
	return -1
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
