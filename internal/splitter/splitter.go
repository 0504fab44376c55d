// Package splitter splits raw document text into bounded, overlap-aware
// segments suitable for embedding.
package splitter

import (
	"strings"

	"github.com/google/uuid"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// DefaultMaxChars is the default character budget per chunk.
const DefaultMaxChars = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 0

// defaultSeparators is the split hierarchy, largest first: paragraph
// break, line break, sentence break, word break. A single word longer
// than the budget is emitted verbatim rather than truncated.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits text using a hierarchy of separators, preferring the
// largest separator that still respects the character budget, then
// greedily merging adjacent pieces back up to the budget. Output is
// deterministic for identical input and configuration.
type Splitter struct {
	maxChars   int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChars sets the chunk budget in characters.
func WithMaxChars(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlap = n
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxChars:   DefaultMaxChars,
		overlap:    DefaultOverlap,
		separators: defaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't swallow whole chunks
	if s.overlap >= s.maxChars {
		s.overlap = s.maxChars / 4
	}

	return s
}

// MaxChars returns the configured chunk budget.
func (s *Splitter) MaxChars() int {
	return s.maxChars
}

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split splits text into chunks in source order. Each chunk is trimmed
// of surrounding whitespace; concatenating chunks with overlaps removed
// reproduces the source modulo whitespace.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.split(text, s.separators)
	merged := s.merge(pieces)

	out := make([]string, 0, len(merged))
	for i, chunk := range merged {
		if s.overlap > 0 && i > 0 {
			chunk = tail(merged[i-1], s.overlap) + chunk
		}
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// SplitDocument splits a document's content and wraps the chunks with
// identity and inherited metadata.
func (s *Splitter) SplitDocument(doc domain.Document) []domain.Chunk {
	parts := s.Split(doc.Content)

	chunks := make([]domain.Chunk, 0, len(parts))
	for i, content := range parts {
		md := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			md[k] = v
		}
		md["source"] = doc.Source

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			Source:   doc.Source,
			Index:    i,
			Content:  content,
			Metadata: md,
		})
	}
	return chunks
}

// split breaks text into pieces no larger than the budget where
// possible. Separators are kept attached to the preceding piece so the
// source can be reconstructed from the pieces.
func (s *Splitter) split(text string, seps []string) []string {
	if len(text) <= s.maxChars {
		return []string{text}
	}
	if len(seps) == 0 {
		// Single token over budget: emit verbatim, never truncate.
		return []string{text}
	}

	sep := seps[0]
	if !strings.Contains(text, sep) {
		return s.split(text, seps[1:])
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) > s.maxChars {
			out = append(out, s.split(part, seps[1:])...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// merge greedily joins adjacent pieces while they fit the budget.
func (s *Splitter) merge(pieces []string) []string {
	var merged []string
	var cur strings.Builder

	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+len(piece) > s.maxChars {
			merged = append(merged, cur.String())
			cur.Reset()
		}
		cur.WriteString(piece)
	}
	if cur.Len() > 0 {
		merged = append(merged, cur.String())
	}
	return merged
}

// tail returns the last n runes of str.
func tail(str string, n int) string {
	runes := []rune(str)
	if len(runes) <= n {
		return str
	}
	return string(runes[len(runes)-n:])
}
