package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column names used by the catalog export.
const (
	colID          = "product_id"
	colName        = "name"
	colCategory    = "category"
	colDescription = "description"
	colIngredients = "top_ingredients"
	colTags        = "tags"
	colPrice       = "price (USD)"
	colMargin      = "margin (%)"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// LoadFile reads a catalog export. Supported formats are CSV, JSON (an array
// of objects) and YAML (a sequence of mappings), chosen by file extension.
// Rows without a product_id are skipped. Unparseable prices and margins are
// stored as nil.
func LoadFile(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		var rows []map[string]any
		if err := json.NewDecoder(f).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decoding json catalog: %w", err)
		}
		return fromRecords(rows), nil
	case ".yaml", ".yml":
		var rows []map[string]any
		if err := yaml.NewDecoder(f).Decode(&rows); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decoding yaml catalog: %w", err)
		}
		return fromRecords(rows), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV parses a CSV catalog whose first row holds the column names.
func ReadCSV(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var products []Product
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if p, ok := build(get); ok {
			products = append(products, p)
		} else {
			slog.Warn("skipping catalog row without product_id", "line", line)
		}
	}
	return products, nil
}

func fromRecords(rows []map[string]any) []Product {
	products := make([]Product, 0, len(rows))
	for i, row := range rows {
		get := func(col string) string {
			v, ok := row[col]
			if !ok || v == nil {
				return ""
			}
			if f, ok := v.(float64); ok {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
			return strings.TrimSpace(fmt.Sprint(v))
		}
		if p, ok := build(get); ok {
			products = append(products, p)
		} else {
			slog.Warn("skipping catalog record without product_id", "index", i)
		}
	}
	return products
}

func build(get func(col string) string) (Product, bool) {
	p := Product{
		ID:          get(colID),
		Name:        get(colName),
		Category:    get(colCategory),
		Description: get(colDescription),
		Ingredients: get(colIngredients),
		Tags:        get(colTags),
		Price:       parseNumber(get(colPrice)),
		Margin:      parseNumber(get(colMargin)),
	}
	return p, p.ID != ""
}

// parseNumber accepts plain numbers with an optional "$" prefix or "%" suffix.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "$"), "%"))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
