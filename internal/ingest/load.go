package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/FunkyDruid/contextrie/internal/source"
)

// ErrUnsupported is returned for content no loader can read, such as binary
// files.
var ErrUnsupported = eris.New("ingest: unsupported content")

// CellSeparator joins the cells of one tabular row into a list item.
const CellSeparator = " | "

// Parse turns raw file bytes into source content, picking the variant by
// the file extension: .csv and .tsv and .xlsx become lists, .json and .yaml
// become collections (a JSON array of strings becomes a list), anything
// else is a document. Text is NFC-normalised.
func Parse(path string, raw []byte) (source.Content, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseDelimited(raw, ',')
	case ".tsv":
		return parseDelimited(raw, '\t')
	case ".xlsx":
		return parseXLSX(raw)
	case ".json":
		return parseJSON(raw)
	case ".yaml", ".yml":
		return parseYAML(raw)
	}
	return parseText(raw)
}

func parseText(raw []byte) (source.Content, error) {
	if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
		return nil, eris.Wrap(ErrUnsupported, "ingest: not utf-8 text")
	}
	return source.Document{Text: norm.NFC.String(string(raw))}, nil
}

func parseDelimited(raw []byte, comma rune) (source.Content, error) {
	if !utf8.Valid(raw) {
		return nil, eris.Wrap(ErrUnsupported, "ingest: csv is not utf-8")
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = comma
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	items := []string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: csv read row")
		}
		if item := joinCells(record); item != "" {
			items = append(items, item)
		}
	}
	return source.List{Items: items}, nil
}

func parseXLSX(raw []byte) (source.Content, error) {
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: xlsx open")
	}
	if len(f.Sheets) == 0 {
		return source.List{Items: []string{}}, nil
	}

	items := []string{}
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if item := joinCells(cells); item != "" {
			items = append(items, item)
		}
	}
	return source.List{Items: items}, nil
}

func parseJSON(raw []byte) (source.Content, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, eris.Wrap(err, "ingest: json decode")
	}
	if items, ok := stringSlice(v); ok {
		return source.List{Items: items}, nil
	}
	return source.Collection{Data: normalizeValue(v)}, nil
}

func parseYAML(raw []byte) (source.Content, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, eris.Wrap(err, "ingest: yaml decode")
	}
	return source.Collection{Data: normalizeValue(v)}, nil
}

func joinCells(cells []string) string {
	out := make([]string, len(cells))
	empty := true
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
		empty = empty && out[i] == ""
	}
	if empty {
		return ""
	}
	return norm.NFC.String(strings.Join(out, CellSeparator))
}

func stringSlice(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	items := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		items[i] = norm.NFC.String(s)
	}
	return items, true
}

// normalizeValue NFC-normalises strings and turns YAML's non-string map keys
// into strings so the value can be rendered as JSON.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case []any:
		for i, e := range t {
			t[i] = normalizeValue(e)
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[norm.NFC.String(k)] = normalizeValue(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[norm.NFC.String(fmt.Sprint(k))] = normalizeValue(e)
		}
		return out
	}
	return v
}
