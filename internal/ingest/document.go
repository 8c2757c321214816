package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kalambet/skinshop/internal/catalog"
)

// Document sources recorded on source docs and doc vectors.
const (
	SourceCatalog = "catalog"
	SourceInfo    = "additional_info"
)

// ErrUnsupportedFormat is returned for info files that are not text,
// markdown or PDF.
var ErrUnsupportedFormat = errors.New("unsupported info file format")

// ProductDocument renders p as the text that is embedded for retrieval.
func ProductDocument(p catalog.Product) string {
	return fmt.Sprintf("Product: %s\nCategory: %s\nDescription: %s\nIngredients: %s\nTags: %s",
		p.Name, p.Category, p.Description, p.Ingredients, p.Tags)
}

// SplitParagraphs splits text on blank lines, dropping empty chunks.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, chunk := range strings.Split(text, "\n\n") {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// ReadInfoFile returns the text of a supplementary info document. Plain text
// and markdown are read as is; PDFs go through a text extractor.
func ReadInfoFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", "":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(b), nil
	case ".pdf":
		return readPDF(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d of %s: %w", i, path, err)
		}
		buf.WriteString(strings.TrimSpace(text))
		// pages are paragraph boundaries
		buf.WriteString("\n\n")
	}
	return buf.String(), nil
}
