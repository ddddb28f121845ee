package models

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"go.jacobcolvin.com/codeannotations/annotation"
)

// DefaultSafelistPath is used when the configuration names no safelist.
const DefaultSafelistPath = ".annotation_safe_list.yml"

// Safelist holds pre-resolved annotations for models that cannot be
// annotated in their own docstrings, keyed by model ID:
//
//	auth.User:
//	  ".. no_pii:": This model holds no PII.
//	sessions.Session: {}
type Safelist struct {
	entries map[string]yaml.MapSlice
	// Path is the file the safelist was read from. It is used as the file
	// name of records and violations that come from the safelist.
	Path string
	ids  []string
}

// ParseSafelist decodes a safelist read from path.
func ParseSafelist(path string, data []byte) (*Safelist, error) {
	var ms yaml.MapSlice

	err := yaml.UnmarshalWithOptions(data, &ms, yaml.UseOrderedMap())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSafelist, path, err)
	}

	sl := &Safelist{Path: path, entries: make(map[string]yaml.MapSlice, len(ms))}

	for _, item := range ms {
		id := fmt.Sprint(item.Key)

		var entry yaml.MapSlice

		switch v := item.Value.(type) {
		case nil:
		case yaml.MapSlice:
			entry = v
		case map[string]any:
			for _, k := range slices.Sorted(maps.Keys(v)) {
				entry = append(entry, yaml.MapItem{Key: k, Value: v[k]})
			}
		default:
			return nil, fmt.Errorf("%w: %s: entry for %s must be a mapping of annotation tokens", ErrSafelist, path, id)
		}

		if _, exists := sl.entries[id]; !exists {
			sl.ids = append(sl.ids, id)
		}

		sl.entries[id] = entry
	}

	return sl, nil
}

// LoadSafelist reads the safelist at path.
func LoadSafelist(path string) (*Safelist, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: safelist not found at %s, generate one with the seed-safelist command", ErrSafelist, path)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSafelist, err)
	}

	return ParseSafelist(path, data)
}

// IDs returns the model IDs of the safelist in file order.
func (s *Safelist) IDs() []string {
	return s.ids
}

// Has reports whether id is safelisted.
func (s *Safelist) Has(id string) bool {
	_, ok := s.entries[id]

	return ok
}

// Annotations returns the safelisted annotations of id in file order.
func (s *Safelist) Annotations(schema *annotation.Schema, id string) []annotation.Annotation {
	entry := s.entries[id]
	if len(entry) == 0 {
		return nil
	}

	full := "{}"
	if b, err := yaml.MarshalWithOptions(entry, yaml.Flow(true)); err == nil {
		full = strings.TrimSpace(string(b))
	}

	anns := make([]annotation.Annotation, 0, len(entry))

	for _, item := range entry {
		token := strings.TrimSpace(fmt.Sprint(item.Key))

		anns = append(anns, annotation.Annotation{
			Token:   token,
			File:    s.Path,
			FoundBy: annotation.FoundBySafelist,
			Data:    safelistData(schema, token, item.Value),
			Extra: map[string]string{
				annotation.ExtraObjectID:    id,
				annotation.ExtraFullComment: full,
			},
		})
	}

	return anns
}

func safelistData(schema *annotation.Schema, token string, value any) annotation.Data {
	var text string

	switch v := value.(type) {
	case nil:
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}

		text = strings.Join(parts, ", ")
	default:
		text = fmt.Sprint(v)
	}

	text = strings.TrimSpace(text)

	if def, ok := schema.Def(token); ok && def.HasChoices() {
		return annotation.ListData(annotation.SplitChoices(text)...)
	}

	return annotation.TextData(text)
}

// SeedSafelist writes a new safelist at path with an empty entry for every
// non-local model, and returns the number of entries. It refuses to
// overwrite an existing file.
func SeedSafelist(path string, models []Model) (int, error) {
	_, err := os.Stat(path)
	if err == nil {
		return 0, fmt.Errorf("%w: %s already exists, not overwriting", ErrSafelist, path)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %w", ErrSafelist, err)
	}

	ms := yaml.MapSlice{}

	for _, m := range models {
		if !m.Local {
			ms = append(ms, yaml.MapItem{Key: m.ID, Value: yaml.MapSlice{}})
		}
	}

	data, err := yaml.Marshal(ms)
	if err != nil {
		return 0, fmt.Errorf("%w: encode: %w", ErrSafelist, err)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSafelist, err)
	}

	return len(ms), nil
}
