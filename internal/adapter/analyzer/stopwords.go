package analyzer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadStopwords reads a stopword list, one lower-case token per line.
// Blank lines are skipped.
func LoadStopwords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stopwords: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stopwords: %w", err)
	}
	return words, nil
}
