// Package segment splits document text into indexable chunks.
package segment

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bull/docqa/internal/index"
)

const (
	// DefaultChunkSize is the maximum number of characters in a fixed-size chunk.
	DefaultChunkSize = 500

	// DefaultMinClauseLength is the trimmed length a line must exceed to be kept as a clause.
	DefaultMinClauseLength = 30
)

// ErrUnknownStrategy is returned by ParseStrategy for names it does not recognise.
var ErrUnknownStrategy = errors.New("unknown split strategy")

// Strategy names a splitting policy.
type Strategy string

const (
	// StrategyFixed cuts text into contiguous, non-overlapping slices of at most ChunkSize characters.
	StrategyFixed Strategy = "fixed"
	// StrategyClause keeps each line whose trimmed length exceeds MinClauseLength.
	StrategyClause Strategy = "clause"
	// StrategyWhole keeps the entire text as a single chunk.
	StrategyWhole Strategy = "whole"
)

// ParseStrategy converts a user-supplied name into a Strategy.
// An empty name selects StrategyFixed.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyFixed:
		return StrategyFixed, nil
	case StrategyClause:
		return StrategyClause, nil
	case StrategyWhole:
		return StrategyWhole, nil
	default:
		return "", fmt.Errorf("%w %q (want %q, %q or %q)", ErrUnknownStrategy, name, StrategyFixed, StrategyClause, StrategyWhole)
	}
}

// Config configures a Segmenter. Zero values select the defaults.
type Config struct {
	ChunkSize       int
	MinClauseLength int
}

// Segmenter splits text into chunks. It holds no state beyond its configuration
// and is safe for concurrent use.
type Segmenter struct {
	chunkSize       int
	minClauseLength int
}

// NewSegmenter creates a Segmenter from cfg.
func NewSegmenter(cfg Config) *Segmenter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MinClauseLength <= 0 {
		cfg.MinClauseLength = DefaultMinClauseLength
	}
	return &Segmenter{
		chunkSize:       cfg.ChunkSize,
		minClauseLength: cfg.MinClauseLength,
	}
}

// Segment splits text using strategy and tags every chunk with source.
// Chunk IDs are dense and start at 0. Empty input yields an empty result.
// Strategies should come from ParseStrategy; any other value is treated as StrategyFixed.
func (s *Segmenter) Segment(text, source string, strategy Strategy) []index.Chunk {
	var pieces []string
	switch strategy {
	case StrategyFixed:
		pieces = s.fixed(text)
	case StrategyClause:
		pieces = s.clauses(text)
	case StrategyWhole:
		pieces = appendNonBlank(nil, text)
	default:
		pieces = s.fixed(text)
	}

	chunks := make([]index.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = index.Chunk{ID: i, Source: source, Text: p}
	}
	return chunks
}

// fixed slices text every chunkSize code points. Slices that are only whitespace are dropped.
func (s *Segmenter) fixed(text string) []string {
	if text == "" {
		return nil
	}

	var pieces []string
	start, count := 0, 0
	for i := range text {
		if count == s.chunkSize {
			pieces = appendNonBlank(pieces, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return appendNonBlank(pieces, text[start:])
}

// clauses returns trimmed lines longer than minClauseLength characters.
func (s *Segmenter) clauses(text string) []string {
	var pieces []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > s.minClauseLength {
			pieces = append(pieces, line)
		}
	}
	return pieces
}

func appendNonBlank(pieces []string, piece string) []string {
	if strings.TrimSpace(piece) == "" {
		return pieces
	}
	return append(pieces, piece)
}
