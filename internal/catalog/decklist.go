package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DeckEntry is one parsed deck-list line.
type DeckEntry struct {
	Count int
	Name  string
}

// ParseDeckList parses the common deck-list format: one card per line with
// an optional leading count ("4 Lightning Bolt" or "4x Lightning Bolt").
// Blank lines and lines starting with # or // are skipped.
func ParseDeckList(r io.Reader) ([]DeckEntry, error) {
	var entries []DeckEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		count, name := splitCount(line)
		if name == "" {
			return nil, fmt.Errorf("line %d: no card name in %q", lineNo, line)
		}
		entries = append(entries, DeckEntry{Count: count, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read deck list: %w", err)
	}
	return entries, nil
}

// splitCount separates the leading count from the card name. A line
// without a numeric prefix is a single copy.
func splitCount(line string) (int, string) {
	first, rest, found := strings.Cut(line, " ")
	if !found {
		return 1, line
	}

	token := strings.TrimSuffix(strings.ToLower(first), "x")
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 {
		return 1, line
	}
	return n, strings.TrimSpace(rest)
}
