package extraction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
	pdfextractor "github.com/unidoc/unipdf/v3/extractor"
	pdf "github.com/unidoc/unipdf/v3/model"
)

var (
	// ErrUnsupportedFormat means the file extension is not one we can read.
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	// ErrExtractionFailure means the file is corrupt or yielded no text.
	ErrExtractionFailure = errors.New("resume text extraction failed")
)

// Extractor converts stored resume files into normalized UTF-8 text.
// It is stateless; the only side effect is reading the file.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns normalized plain text.
// Supported extensions: pdf, doc, docx, txt.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	var (
		text string
		err  error
	)
	switch ext {
	case "pdf":
		text, err = extractPDF(path)
	case "doc", "docx":
		text, err = extractDocx(path)
	case "txt":
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	default:
		return "", fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailure, err)
	}

	text = Normalize(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text in %s", ErrExtractionFailure, filepath.Base(path))
	}
	return text, nil
}

func extractPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := pdf.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("page count: %w", err)
	}
	if numPages == 0 {
		return "", errors.New("pdf has no pages")
	}

	var builder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			continue // unreadable page, keep what we can
		}
		ex, err := pdfextractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("no text could be extracted from any page")
	}
	return text, nil
}

var docxTag = regexp.MustCompile(`<[^>]+>`)

func extractDocx(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	// The document body is WordprocessingML; paragraph ends become
	// newlines before the remaining tags are dropped.
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	return docxTag.ReplaceAllString(content, ""), nil
}

// Normalize collapses whitespace runs within lines and blank-line runs
// between them, so downstream regex passes see a stable shape.
func Normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
