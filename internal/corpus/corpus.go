package corpus

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Splitter turns class-description text into lower-cased token sequences,
// one sequence per sentence.
type Splitter struct {
	sentences *regexp.Regexp
	tokens    *regexp.Regexp
}

func NewSplitter() *Splitter {
	return &Splitter{
		sentences: regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`),
		tokens:    regexp.MustCompile(`[\p{L}\p{N}]+(?:[-_'’][\p{L}\p{N}]+)*`),
	}
}

// Sentences splits text on sentence punctuation and line breaks.
func (s *Splitter) Sentences(text string) []string {
	raw := s.sentences.FindAllString(text+"\n", -1)
	out := make([]string, 0, len(raw))
	for _, sent := range raw {
		if trimmed := strings.TrimSpace(sent); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Tokenize returns one token sequence per non-empty sentence.
func (s *Splitter) Tokenize(text string) [][]string {
	var seqs [][]string
	for _, sent := range s.Sentences(text) {
		toks := s.tokens.FindAllString(strings.ToLower(sent), -1)
		if len(toks) > 0 {
			seqs = append(seqs, toks)
		}
	}
	return seqs
}

// Load reads and tokenizes a corpus file.
func (s *Splitter) Load(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	seqs := s.Tokenize(string(data))
	if len(seqs) == 0 {
		return nil, fmt.Errorf("corpus %s contains no tokens", path)
	}
	return seqs, nil
}
