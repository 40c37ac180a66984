// Package catalog maps card names to artwork sources. It supplies the
// per-card metadata the render pipeline needs: where the art lives and
// how its bleed should be handled.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Card is one catalog record.
type Card struct {
	Name            string  `json:"name"`
	SourceURL       string  `json:"source_url"`
	BleedMode       string  `json:"bleed_mode,omitempty"`
	HasBakedBleed   bool    `json:"has_baked_bleed,omitempty"`
	IsUserUpload    bool    `json:"is_user_upload,omitempty"`
	ExistingBleedMm float64 `json:"existing_bleed_mm,omitempty"`
}

// Source resolves a card name to its record. Lookups are expected to be
// forgiving about case and diacritics.
type Source interface {
	Lookup(name string) (Card, bool)
}

// FileSource is a Source backed by a JSON file: an array of Card records
// keyed in memory by normalized name.
type FileSource struct {
	cards map[string]Card
}

var _ Source = (*FileSource)(nil)

// LoadFileSource reads a JSON catalog from path.
func LoadFileSource(path string) (*FileSource, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var cards []Card
	if err := json.Unmarshal(blob, &cards); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	s := &FileSource{cards: make(map[string]Card, len(cards))}
	for _, c := range cards {
		if c.Name == "" || c.SourceURL == "" {
			return nil, fmt.Errorf("catalog %s: record missing name or source_url", path)
		}
		s.cards[NormalizeName(c.Name)] = c
	}
	return s, nil
}

// Lookup resolves a card by normalized name.
func (s *FileSource) Lookup(name string) (Card, bool) {
	c, ok := s.cards[NormalizeName(name)]
	return c, ok
}

// Len returns the number of catalog records.
func (s *FileSource) Len() int {
	return len(s.cards)
}
