package bulkimport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Canonical column names.
const (
	ColLibraryID = "library_id"
	ColAPIKey    = "stream_api_key"
	ColActive    = "is_active"
)

var headerAliases = map[string]string{
	"library_id":     ColLibraryID,
	"libraryid":      ColLibraryID,
	"library":        ColLibraryID,
	"stream_api_key": ColAPIKey,
	"api_key":        ColAPIKey,
	"apikey":         ColAPIKey,
	"key":            ColAPIKey,
	"is_active":      ColActive,
	"active":         ColActive,
}

// ErrNoLibraryColumn is returned when the header row has no library id column.
var ErrNoLibraryColumn = errors.New("header row has no library_id column")

// Row is one data row of an import file.
type Row struct {
	Line      int // 1-based line in the file; the header is line 1
	LibraryID int
	APIKey    string
	Active    *bool
	// Problem is set when the row cannot be applied.
	Problem string
}

// Valid reports whether the row can be sent as an update.
func (r Row) Valid() bool { return r.Problem == "" }

// NormalizeHeader trims, lowercases and replaces spaces and dashes with
// underscores, then resolves aliases.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	if canon, ok := headerAliases[h]; ok {
		return canon
	}
	return h
}

// Parse turns raw rows (header first) into import rows. Blank lines are
// skipped; rows that cannot be applied are kept with Problem set so they show
// up in the result.
func Parse(rows [][]string) ([]Row, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	cols := make(map[string]int)
	for i, h := range rows[0] {
		name := NormalizeHeader(h)
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	if _, ok := cols[ColLibraryID]; !ok {
		return nil, ErrNoLibraryColumn
	}

	out := make([]Row, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		out = append(out, parseRow(i+2, raw, cols))
	}
	return out, nil
}

func parseRow(line int, raw []string, cols map[string]int) Row {
	row := Row{Line: line}

	idText := cell(raw, cols, ColLibraryID)
	id, err := parseID(idText)
	if err != nil {
		row.Problem = err.Error()
		return row
	}
	row.LibraryID = id

	if activeText := cell(raw, cols, ColActive); activeText != "" {
		active, err := parseBool(activeText)
		if err != nil {
			row.Problem = err.Error()
			return row
		}
		row.Active = &active
	}

	row.APIKey = cell(raw, cols, ColAPIKey)
	if row.APIKey == "" {
		row.Problem = "missing API key"
	}
	return row
}

func cell(raw []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[idx])
}

func blank(raw []string) bool {
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseID accepts "42" and spreadsheet-style "42.0".
func parseID(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing library id")
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid library id %q", s)
	}
	return int(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "active", "on":
		return true, nil
	case "0", "false", "no", "n", "inactive", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid active flag %q", s)
}
