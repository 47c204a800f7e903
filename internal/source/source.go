package source

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Source yields the verses to animate, in order.
type Source interface {
	LineCount() int
	Line(index int) string
	Close() error
}

// Document is an ordered, immutable list of verse lines. Empty lines are kept
// so that line indices in logs match the submitted text.
type Document struct {
	lines []string
}

// NewDocument copies lines into a Document.
func NewDocument(lines ...string) Document {
	return Document{lines: append([]string(nil), lines...)}
}

// Parse splits a submitted text block into lines: CRLF is normalised, the
// whole block is trimmed, then it is split on newlines.
func Parse(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}
	}
	return Document{lines: strings.Split(text, "\n")}
}

// Read parses everything r yields.
func Read(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	return Parse(string(data)), nil
}

func (d Document) LineCount() int { return len(d.lines) }

func (d Document) Line(index int) string { return d.lines[index] }

// Lines returns a copy of the lines.
func (d Document) Lines() []string { return append([]string(nil), d.lines...) }

func (d Document) Close() error { return nil }

// FileSource reads a UTF-8 text file once and serves its lines.
type FileSource struct {
	Document
	path string
}

func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &FileSource{Document: doc, path: path}, nil
}

func (f *FileSource) Path() string { return f.path }

// Collect snapshots any Source into a Document.
func Collect(src Source) Document {
	lines := make([]string, src.LineCount())
	for i := range lines {
		lines[i] = src.Line(i)
	}
	return Document{lines: lines}
}
