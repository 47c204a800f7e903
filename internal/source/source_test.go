package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "مرحبا بكم", []string{"مرحبا بكم"}},
		{"crlf", "a b\r\nc d\r\n", []string{"a b", "c d"}},
		{"outer whitespace trimmed", "\n\n  line one\nline two  \n\n", []string{"line one", "line two"}},
		{"inner empty lines kept", "first\n\nthird", []string{"first", "", "third"}},
		{"empty", "   \n ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(tt.in)
			assert.Equal(t, len(tt.want), doc.LineCount())
			if tt.want != nil {
				assert.Equal(t, tt.want, doc.Lines())
			}
		})
	}
}

func TestDocumentIsImmutable(t *testing.T) {
	src := []string{"a", "b"}
	doc := NewDocument(src...)
	src[0] = "changed"

	lines := doc.Lines()
	lines[1] = "changed"

	assert.Equal(t, "a", doc.Line(0))
	assert.Equal(t, "b", doc.Line(1))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verses.txt")
	require.NoError(t, os.WriteFile(path, []byte("بسم الله\r\nالحمد لله\n"), 0o644))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, path, src.Path())
	assert.Equal(t, 2, src.LineCount())
	assert.Equal(t, "الحمد لله", src.Line(1))

	doc := Collect(src)
	assert.Equal(t, src.Lines(), doc.Lines())
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestRead(t *testing.T) {
	doc, err := Read(strings.NewReader("one\ntwo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, doc.Lines())
}
