// Package tags translates raw genre strings into canonical tag names.
package tags

import (
	"encoding/json"
	"fmt"
	"os"
)

// Dictionary maps raw tag strings to canonical tag names. It is immutable
// once built and safe for concurrent readers.
type Dictionary struct {
	entries map[string]string
}

// New builds a Dictionary from a copy of entries.
func New(entries map[string]string) *Dictionary {
	copied := make(map[string]string, len(entries))
	for raw, canonical := range entries {
		copied[raw] = canonical
	}
	return &Dictionary{entries: copied}
}

// Load reads a JSON object of raw tag to canonical tag from path.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag dictionary: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode tag dictionary %s: %w", path, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("tag dictionary %s is empty", path)
	}
	return &Dictionary{entries: entries}, nil
}

// Len reports the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Translate returns a new slice where every known tag is replaced by its
// canonical name. Unknown tags pass through unchanged and order is kept.
func (d *Dictionary) Translate(raw []string) []string {
	out := make([]string, len(raw))
	for i, tag := range raw {
		out[i] = tag
		if d == nil {
			continue
		}
		if canonical, ok := d.entries[tag]; ok {
			out[i] = canonical
		}
	}
	return out
}
