// Package document turns uploaded files into paper text.
package document

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"paperforge/internal/models"
	"paperforge/internal/util"
)

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrUnsupportedType   = errors.New("unsupported document type")
)

const maxTitleLen = 200

// Extract reads a PDF or plain-text upload. The title is the first
// non-empty line of the text, or the file name when the text has none that
// looks like a title.
func Extract(data []byte, filename string) (models.PaperContent, error) {
	var text string
	var err error
	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case ext == ".pdf" || bytes.HasPrefix(data, []byte("%PDF-")):
		text, err = pdfText(data)
	case ext == ".txt" || ext == ".md" || ext == "":
		if !utf8.Valid(data) {
			return models.PaperContent{}, fmt.Errorf("%w: text is not valid utf-8", ErrUnsupportedType)
		}
		text = string(data)
	default:
		return models.PaperContent{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if err != nil {
		return models.PaperContent{}, err
	}
	text = util.SanitizeText(text)
	if text == "" {
		return models.PaperContent{}, ErrNoExtractableText
	}
	return models.PaperContent{Title: guessTitle(text, filename), Content: text}, nil
}

func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return buf.String(), nil
}

func guessTitle(text, filename string) string {
	s := bufio.NewScanner(strings.NewReader(text))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleLen {
			break
		}
		return line
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == "/" {
		return "Untitled paper"
	}
	return base
}
