package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	p, err := Extract([]byte("\n\n  Attention Is All You Need \nVaswani et al.\n\nWe propose..."), "paper.txt")
	require.NoError(t, err)
	require.Equal(t, "Attention Is All You Need", p.Title)
	require.True(t, strings.HasPrefix(p.Content, "Attention Is All You Need"))
	require.Contains(t, p.Content, "We propose...")
}

func TestExtractTitleFallsBackToFilename(t *testing.T) {
	long := strings.Repeat("word ", 100)
	p, err := Extract([]byte(long), "uploads/transformers.md")
	require.NoError(t, err)
	require.Equal(t, "transformers", p.Title)
}

func TestExtractEmpty(t *testing.T) {
	_, err := Extract([]byte(" \x00\n\t "), "empty.txt")
	require.ErrorIs(t, err, ErrNoExtractableText)
}

func TestExtractRejectsUnknownType(t *testing.T) {
	_, err := Extract([]byte("PK\x03\x04"), "paper.docx")
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Extract([]byte{0xff, 0xfe, 0x00}, "paper.txt")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractBrokenPDF(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4\nnot really a pdf"), "paper.pdf")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedType)
}
