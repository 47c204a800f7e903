// Package reveal builds the word-by-word reveal states of a shaped line.
package reveal

import (
	"strings"

	"github.com/ivlev/verse2video/internal/shaper"
)

// State is the k-th reveal of a line: its first k words with the newest one
// first, so the newest word sits at the right-pinned origin once drawn and the
// older ones trail to its left.
//
// States of one line share a single read-only backing slice and are safe to
// use from several goroutines.
type State struct {
	newestFirst []string // [wk, ..., w1]
}

// Sequence returns one state per word of line. A line without words yields nil.
func Sequence(line shaper.ShapedLine) []State {
	n := len(line.Words)
	if n == 0 {
		return nil
	}

	reversed := make([]string, n)
	for i, w := range line.Words {
		reversed[n-1-i] = w
	}

	states := make([]State, n)
	for k := 1; k <= n; k++ {
		// full slice expression: no state can append into its neighbour
		states[k-1] = State{newestFirst: reversed[n-k : n : n]}
	}
	return states
}

// Len is the number of revealed words.
func (s State) Len() int { return len(s.newestFirst) }

// Newest is the most recently revealed word.
func (s State) Newest() string {
	if len(s.newestFirst) == 0 {
		return ""
	}
	return s.newestFirst[0]
}

// Words returns a copy of the revealed words, newest first.
func (s State) Words() []string {
	return append([]string(nil), s.newestFirst...)
}

// Text is the string drawn for this state.
func (s State) Text() string {
	return strings.Join(s.newestFirst, " ")
}
