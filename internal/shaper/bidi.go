package shaper

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/bidi"
)

// Reorder applies the bidi algorithm to one line and returns it in visual
// left-to-right order. The paragraph direction comes from the first strong
// character. Brackets are mirrored at odd levels and combining marks stay
// after their base letter.
func Reorder(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	runes := []rune(s)
	base := 0
	if baseDirection(s) == bidi.RightToLeft {
		base = 1
	}
	levels := resolveLevels(runes, base)

	// a base rune and the marks that follow it move as one unit
	type cluster struct{ start, end, level int }
	var clusters []cluster
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && unicode.Is(unicode.Mn, runes[j]) {
			j++
		}
		clusters = append(clusters, cluster{i, j, levels[i]})
		i = j
	}

	// L2: from the highest level down to the lowest odd one, reverse every
	// maximal sequence at that level or above.
	highest, lowestOdd := 0, -1
	for _, c := range clusters {
		highest = max(highest, c.level)
		if c.level%2 == 1 && (lowestOdd < 0 || c.level < lowestOdd) {
			lowestOdd = c.level
		}
	}
	for lvl := highest; lowestOdd > 0 && lvl >= lowestOdd; lvl-- {
		for i := 0; i < len(clusters); {
			if clusters[i].level < lvl {
				i++
				continue
			}
			j := i
			for j < len(clusters) && clusters[j].level >= lvl {
				j++
			}
			slices.Reverse(clusters[i:j])
			i = j
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, c := range clusters {
		r := runes[c.start]
		if c.level%2 == 1 {
			if m, ok := mirrored[r]; ok {
				r = m
			}
		}
		b.WriteRune(r)
		for _, m := range runes[c.start+1 : c.end] {
			b.WriteRune(m)
		}
	}
	return b.String(), nil
}

func baseDirection(s string) bidi.Direction {
	for _, r := range s {
		switch classOf(r) {
		case bidi.L:
			return bidi.LeftToRight
		case bidi.R, bidi.AL:
			return bidi.RightToLeft
		}
	}
	return bidi.LeftToRight
}

func classOf(r rune) bidi.Class {
	props, _ := bidi.LookupRune(r)
	return props.Class()
}

// resolveLevels assigns an embedding level to every rune of a line whose
// paragraph level is base (0 or 1), following the weak, neutral and implicit
// rules. Explicit embedding controls and boundary neutrals are not honoured:
// they take the level of the rune before them. Bracket pairs are resolved as
// ordinary neutrals.
func resolveLevels(runes []rune, base int) []int {
	sos := bidi.L
	if base == 1 {
		sos = bidi.R
	}

	classes := make([]bidi.Class, len(runes))
	var kept []int
	for i, r := range runes {
		classes[i] = classOf(r)
		if !ignored(classes[i]) {
			kept = append(kept, i)
		}
	}

	t := make([]bidi.Class, len(kept))
	for k, i := range kept {
		t[k] = classes[i]
	}
	resolveWeak(t, sos)
	resolveNeutral(t, sos)

	levels := make([]int, len(runes))
	for i := range levels {
		levels[i] = -1
	}
	for k, i := range kept {
		levels[i] = implicitLevel(t[k], base)
	}
	prev := base
	for i := range levels {
		if levels[i] < 0 {
			levels[i] = prev
		}
		prev = levels[i]
	}

	// L1: separators and trailing whitespace go back to the paragraph level
	trailing := true
	for i := len(runes) - 1; i >= 0; i-- {
		switch c := classes[i]; {
		case c == bidi.S || c == bidi.B:
			levels[i] = base
			trailing = true
		case c == bidi.WS || ignored(c):
			if trailing {
				levels[i] = base
			}
		default:
			trailing = false
		}
	}
	return levels
}

func ignored(c bidi.Class) bool {
	switch c {
	case bidi.BN, bidi.LRO, bidi.RLO, bidi.LRE, bidi.RLE, bidi.PDF,
		bidi.LRI, bidi.RLI, bidi.FSI, bidi.PDI, bidi.Control:
		return true
	}
	return false
}

// resolveWeak applies W1-W7 in place.
func resolveWeak(t []bidi.Class, sos bidi.Class) {
	// W1
	prev := sos
	for i, c := range t {
		if c == bidi.NSM {
			t[i] = prev
		} else {
			prev = c
		}
	}

	// W2, W3
	strong := sos
	for i, c := range t {
		switch c {
		case bidi.L, bidi.R, bidi.AL:
			strong = c
		case bidi.EN:
			if strong == bidi.AL {
				t[i] = bidi.AN
			}
		}
	}
	for i, c := range t {
		if c == bidi.AL {
			t[i] = bidi.R
		}
	}

	// W4
	for i := 1; i+1 < len(t); i++ {
		before, after := t[i-1], t[i+1]
		switch {
		case t[i] == bidi.ES && before == bidi.EN && after == bidi.EN:
			t[i] = bidi.EN
		case t[i] == bidi.CS && before == after && (before == bidi.EN || before == bidi.AN):
			t[i] = before
		}
	}

	// W5
	for i := 0; i < len(t); {
		if t[i] != bidi.ET {
			i++
			continue
		}
		j := i
		for j < len(t) && t[j] == bidi.ET {
			j++
		}
		if (i > 0 && t[i-1] == bidi.EN) || (j < len(t) && t[j] == bidi.EN) {
			for k := i; k < j; k++ {
				t[k] = bidi.EN
			}
		}
		i = j
	}

	// W6
	for i, c := range t {
		if c == bidi.ES || c == bidi.ET || c == bidi.CS {
			t[i] = bidi.ON
		}
	}

	// W7
	strong = sos
	for i, c := range t {
		switch c {
		case bidi.L, bidi.R:
			strong = c
		case bidi.EN:
			if strong == bidi.L {
				t[i] = bidi.L
			}
		}
	}
}

// resolveNeutral applies N1 and N2 in place. Numbers count as R.
func resolveNeutral(t []bidi.Class, sos bidi.Class) {
	strongOf := func(c bidi.Class) bidi.Class {
		if c == bidi.L {
			return bidi.L
		}
		return bidi.R
	}

	for i := 0; i < len(t); {
		if !neutral(t[i]) {
			i++
			continue
		}
		j := i
		for j < len(t) && neutral(t[j]) {
			j++
		}
		before, after := sos, sos
		if i > 0 {
			before = strongOf(t[i-1])
		}
		if j < len(t) {
			after = strongOf(t[j])
		}
		dir := sos
		if before == after {
			dir = before
		}
		for k := i; k < j; k++ {
			t[k] = dir
		}
		i = j
	}
}

func neutral(c bidi.Class) bool {
	return c == bidi.B || c == bidi.S || c == bidi.WS || c == bidi.ON
}

// implicitLevel applies I1 and I2.
func implicitLevel(c bidi.Class, base int) int {
	if base%2 == 0 {
		switch c {
		case bidi.R:
			return base + 1
		case bidi.AN, bidi.EN:
			return base + 2
		}
		return base
	}
	switch c {
	case bidi.L, bidi.EN, bidi.AN:
		return base + 1
	}
	return base
}
