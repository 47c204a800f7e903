package shaper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReshapeContextualForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []rune
	}{
		{"isolated beh", "ب", []rune{0xFE8F}},
		{"initial medial final", "بكم", []rune{0xFE91, 0xFEDC, 0xFEE2}},
		{"right joiner breaks the chain", "دب", []rune{0xFEA9, 0xFE8F}},
		{"lam alef isolated", "لا", []rune{0xFEFB}},
		{"lam alef final", "سلام", []rune{0xFEB3, 0xFEFC, 0xFEE1}},
		{"lam alef hamza below", "لإ", []rune{0xFEF9}},
		{"tatweel connects", "بـب", []rune{0xFE91, 0x0640, 0xFE90}},
		{"persian peh", "پپ", []rune{0xFB58, 0xFB57}},
		{"heh doachashmee medial", "بھب", []rune{0xFE91, 0xFBAD, 0xFE90}},
		{"heh goal initial", "ہب", []rune{0xFBA8, 0xFE90}},
		{"yeh barree final", "بے", []rune{0xFE91, 0xFBAF}},
		{"veh isolated", "ڤ", []rune{0xFB6A}},
		{"noon ghunna has no initial form", "ںب", []rune{0x06BA, 0xFE90}},
		{"heh with yeh above final", "بۀ", []rune{0xFE91, 0xFBA5}},
		{"unlisted letter keeps neighbours joined", "بݐب", []rune{0xFE91, 0x0750, 0xFE90}},
		{"zwj forces initial", "ب\u200d", []rune{0xFE91}},
		{"zwj forces final", "\u200dب", []rune{0xFE90}},
		{"zwj forces medial", "\u200dب\u200d", []rune{0xFE92}},
		{"latin untouched", "abc", []rune("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, string(tt.want), Reshape(tt.in))
		})
	}
}

func TestReshapeSkipsMarksWhenJoining(t *testing.T) {
	// beh + fatha + teh: the fatha must not break the join
	got := []rune(Reshape("بَت"))
	require.Len(t, got, 3)
	assert.Equal(t, rune(0xFE91), got[0])
	assert.Equal(t, rune(0x064E), got[1])
	assert.Equal(t, rune(0xFE96), got[2])
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"latin stays", "hello world", "hello world"},
		{"arabic reversed", "ابج", "جبا"},
		{"arabic words reversed", "اب جد", "دج با"},
		{"latin paragraph with arabic run", "abc ابج def", "abc جبا def"},
		{"arabic paragraph keeps digits", "سورة 12", "12 ةروس"},
		{"brackets mirrored", "(اب)", "(با)"},
		{"numbers nested in arabic inside latin", "abc مرحبا 123 بكم def", "abc مكب 123 ابحرم def"},
		{"latin words nested in arabic", "مرحبا abc def بكم", "مكب abc def ابحرم"},
		{"trailing space stays at the end", "abc ابج ", "abc جبا "},
		{"marks follow their base", "بَا", "ابَ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeSplitsDisplayOrderedWords(t *testing.T) {
	line, err := Shape("مرحبا بكم")
	require.NoError(t, err)

	require.Len(t, line.Words, 2)
	// display order: the logically last word is leftmost
	assert.Equal(t, reverseRunes(Reshape("بكم")), line.Words[0])
	assert.Equal(t, reverseRunes(Reshape("مرحبا")), line.Words[1])
	assert.Equal(t, "مرحبا بكم", line.Source)
}

func TestShapeEmptyLines(t *testing.T) {
	for _, in := range []string{"", "   ", "\t  "} {
		line, err := Shape(in)
		require.NoError(t, err)
		assert.True(t, line.Empty(), "input %q", in)
		assert.Empty(t, line.Words)
	}
}

func TestShapeInvalidUTF8(t *testing.T) {
	line, err := Shape("abc\xff")
	require.Error(t, err)
	assert.True(t, line.Empty())

	var shapeErr *Error
	require.True(t, errors.As(err, &shapeErr))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestShapeIsIdempotent(t *testing.T) {
	inputs := []string{"مرحبا بكم", "hello world", "بسم الله الرحمن الرحيم", "آية 7 (مثال)"}
	for _, in := range inputs {
		a, errA := Shape(in)
		b, errB := Shape(in)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a, b)
	}
}

func TestReorderInvalidUTF8(t *testing.T) {
	_, err := Reorder("ab\xff")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestShapeDropsHarakatByDefault(t *testing.T) {
	voweled, err := Shape("بِسْمِ اللَّهِ")
	require.NoError(t, err)
	plain, err := Shape("بسم الله")
	require.NoError(t, err)

	assert.Equal(t, plain.Words, voweled.Words)
	for _, r := range voweled.Text {
		assert.False(t, IsHarakat(r), "mark %U left in %q", r, voweled.Text)
	}
	assert.Equal(t, "بِسْمِ اللَّهِ", voweled.Source)
}

func TestShapeWithKeepHarakat(t *testing.T) {
	line, err := ShapeWith("بَت", Options{KeepHarakat: true})
	require.NoError(t, err)
	require.Len(t, line.Words, 1)
	// display order: final teh, initial beh, fatha after its base
	assert.Equal(t, string([]rune{0xFE96, 0xFE91, 0x064E}), line.Words[0])
}

func TestShapeMarksOnlyLineIsEmpty(t *testing.T) {
	line, err := Shape("\u064e\u0650 \u0651")
	require.NoError(t, err)
	assert.True(t, line.Empty())
}

func TestStripHarakat(t *testing.T) {
	assert.Equal(t, "بسم", StripHarakat("بِسْمِ"))
	assert.Equal(t, "abc 12", StripHarakat("abc 12"))
	// superscript alef is a mark too
	assert.Equal(t, "هذا", StripHarakat("هٰذا"))
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
