// Package mappings reads and writes the keyword and cashflow mapping files.
//
// Keyword files are JSON objects of label -> [keywords]. Object key order is
// the rule priority, so they are decoded token by token instead of into a map.
package mappings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"budgetanalyser/internal/core"
)

// LoadKeywordMapping reads an ordered keyword mapping from path.
func LoadKeywordMapping(path string) (core.KeywordMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DataSourceError{Path: path, Err: err}
	}
	m, err := DecodeKeywordMapping(bytes.NewReader(data))
	if err != nil {
		return nil, &core.DataSourceError{Path: path, Err: err}
	}
	return m, nil
}

// DecodeKeywordMapping preserves the object's key order.
func DecodeKeywordMapping(r io.Reader) (core.KeywordMapping, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.KeywordMapping{}, nil
		}
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("mapping must be a JSON object")
	}

	var out core.KeywordMapping
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read label: %w", err)
		}
		label, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var keywords []string
		if err := dec.Decode(&keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for %q: %w", label, err)
		}
		out = append(out, core.KeywordRule{Label: label, Keywords: keywords})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read mapping end: %w", err)
	}
	return out, nil
}

// EncodeKeywordMapping writes m as an indented JSON object in rule order.
func EncodeKeywordMapping(m core.KeywordMapping) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, r := range m {
		if i > 0 {
			buf.WriteString(",")
		}
		label, err := json.Marshal(r.Label)
		if err != nil {
			return nil, err
		}
		kws := r.Keywords
		if kws == nil {
			kws = []string{}
		}
		values, err := json.MarshalIndent(kws, "  ", "  ")
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(label)
		buf.WriteString(": ")
		buf.Write(values)
	}
	if len(m) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// SaveKeywordMapping replaces path atomically.
func SaveKeywordMapping(path string, m core.KeywordMapping) error {
	data, err := EncodeKeywordMapping(m)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	return writeFileAtomic(path, data)
}

// AddKeywords appends keywords to label, creating the rule at the end when
// absent. Keywords already present (case-insensitively) are skipped.
func AddKeywords(m core.KeywordMapping, label string, keywords ...string) core.KeywordMapping {
	out := make(core.KeywordMapping, len(m))
	copy(out, m)

	pos := -1
	for i, r := range out {
		if r.Label == label {
			pos = i
			break
		}
	}
	if pos < 0 {
		out = append(out, core.KeywordRule{Label: label})
		pos = len(out) - 1
	}

	rule := out[pos]
	kws := append([]string(nil), rule.Keywords...)
	seen := make(map[string]bool, len(kws))
	for _, k := range kws {
		seen[strings.ToLower(k)] = true
	}
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		kws = append(kws, k)
	}
	out[pos] = core.KeywordRule{Label: label, Keywords: kws}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create mapping directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
