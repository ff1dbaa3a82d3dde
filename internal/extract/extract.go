// Package extract turns ingest payloads (files, URLs) into plain text for
// chunking. Parsers are registered per file extension; unknown extensions
// are a validation error, not a silent fallback.
package extract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/osamaatef1/rag-service/internal/domain"
)

// Extractor converts one file format into plain text.
type Extractor func(data []byte) (string, error)

// Registry maps file extensions to extraction strategies.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the default set of extractors:
// txt, md, json, csv, html.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register("txt", extractPlain)
	r.Register("md", extractPlain)
	r.Register("json", extractJSON)
	r.Register("csv", extractCSV)
	r.Register("html", extractHTML)
	return r
}

// Register adds or replaces the extractor for an extension (without dot,
// lower-case).
func (r *Registry) Register(ext string, fn Extractor) {
	r.extractors[ext] = fn
}

// Supported returns the registered extensions, sorted.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract parses file data by filename extension.
func (r *Registry) Extract(filename string, data []byte) (string, error) {
	ext := extension(filename)
	fn, ok := r.extractors[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q (supported: %s): %w",
			ext, strings.Join(r.Supported(), ", "), domain.ErrValidation)
	}
	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w: %w", filename, err, domain.ErrValidation)
	}
	return text, nil
}

func extension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

func extractPlain(data []byte) (string, error) {
	return string(data), nil
}

// extractJSON flattens JSON into "key: value" lines. Arrays of objects (the
// common export format) become one block per object.
func extractJSON(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}

	if items, ok := v.([]any); ok && len(items) > 0 {
		if _, isObj := items[0].(map[string]any); isObj {
			blocks := make([]string, 0, len(items))
			for _, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					continue
				}
				var lines []string
				for _, k := range sortedKeys(obj) {
					if s := scalarString(obj[k]); s != "" {
						lines = append(lines, k+": "+s)
					}
				}
				if len(lines) > 0 {
					blocks = append(blocks, strings.Join(lines, "\n"))
				}
			}
			return strings.Join(blocks, "\n\n"), nil
		}
	}

	return flattenJSON(v, ""), nil
}

func flattenJSON(v any, prefix string) string {
	switch t := v.(type) {
	case map[string]any:
		var lines []string
		for _, k := range sortedKeys(t) {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			lines = append(lines, flattenJSON(t[k], key))
		}
		return strings.Join(lines, "\n")
	case []any:
		var lines []string
		for i, item := range t {
			key := fmt.Sprintf("%s[%d]", prefix, i)
			if prefix == "" {
				key = fmt.Sprintf("item[%d]", i)
			}
			lines = append(lines, flattenJSON(item, key))
		}
		return strings.Join(lines, "\n")
	default:
		s := scalarString(v)
		if prefix == "" {
			return s
		}
		return prefix + ": " + s
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// extractCSV renders each row as "header: value." sentences, one row per
// paragraph, so row context survives chunking.
func extractCSV(data []byte) (string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("parse csv header: %w", err)
	}

	var rows []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv row: %w", err)
		}
		var parts []string
		for i, value := range record {
			if i >= len(header) {
				break
			}
			if v := strings.TrimSpace(value); v != "" {
				parts = append(parts, header[i]+": "+v)
			}
		}
		if len(parts) > 0 {
			rows = append(rows, strings.Join(parts, ". ")+".")
		}
	}
	return strings.Join(rows, "\n\n"), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
