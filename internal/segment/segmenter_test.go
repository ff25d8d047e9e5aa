package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/index"
)

func TestFixed_SplitsAtChunkSize(t *testing.T) {
	s := NewSegmenter(Config{})
	chunks := s.Segment(strings.Repeat("A", 600), "doc.txt", StrategyFixed)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Text, 500)
	assert.Len(t, chunks[1].Text, 100)
	assert.Equal(t, 0, chunks[0].ID)
	assert.Equal(t, 1, chunks[1].ID)
	assert.Equal(t, "doc.txt", chunks[1].Source)
}

func TestFixed_ExactMultiple(t *testing.T) {
	s := NewSegmenter(Config{ChunkSize: 4})
	chunks := s.Segment("abcdefgh", "d", StrategyFixed)

	require.Len(t, chunks, 2)
	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, "efgh", chunks[1].Text)
}

func TestFixed_NoOverlapAndLossless(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog, again and again."
	s := NewSegmenter(Config{ChunkSize: 7})
	chunks := s.Segment(text, "d", StrategyFixed)

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.Text)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestFixed_CountsCharactersNotBytes(t *testing.T) {
	s := NewSegmenter(Config{ChunkSize: 3})
	chunks := s.Segment("héllo wörld", "d", StrategyFixed)

	require.Len(t, chunks, 4)
	assert.Equal(t, "hél", chunks[0].Text)
	assert.Equal(t, "lo ", chunks[1].Text)
	assert.Equal(t, "wör", chunks[2].Text)
	assert.Equal(t, "ld", chunks[3].Text)
}

func TestFixed_DropsBlankSlicesKeepsIDsDense(t *testing.T) {
	s := NewSegmenter(Config{ChunkSize: 3})
	chunks := s.Segment("abc      def", "d", StrategyFixed)

	require.Len(t, chunks, 2)
	assert.Equal(t, "abc", chunks[0].Text)
	assert.Equal(t, "def", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].ID)
}

func TestSegment_EmptyInput(t *testing.T) {
	s := NewSegmenter(Config{})
	assert.Empty(t, s.Segment("", "d", StrategyFixed))
	assert.Empty(t, s.Segment("", "d", StrategyClause))
	assert.Empty(t, s.Segment("   \n\t  ", "d", StrategyFixed))
}

func TestClause_FiltersShortLines(t *testing.T) {
	text := strings.Join([]string{
		"POLICY SCHEDULE",
		"   The insured may cancel this policy at any time by written notice.   ",
		"Page 3",
		"",
		"Claims must be reported within thirty days of the incident date.\r",
		"exactly thirty characters long",
	}, "\n")

	s := NewSegmenter(Config{})
	chunks := s.Segment(text, "policy.pdf", StrategyClause)

	require.Len(t, chunks, 2)
	assert.Equal(t, "The insured may cancel this policy at any time by written notice.", chunks[0].Text)
	assert.Equal(t, "Claims must be reported within thirty days of the incident date.", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].ID)
	assert.Equal(t, "policy.pdf", chunks[0].Source)
}

func TestClause_CustomThreshold(t *testing.T) {
	s := NewSegmenter(Config{MinClauseLength: 3})
	chunks := s.Segment("ab\nabcd\nabc", "d", StrategyClause)

	require.Len(t, chunks, 1)
	assert.Equal(t, "abcd", chunks[0].Text)
}

func TestWhole_KeepsShortDocumentAsOneChunk(t *testing.T) {
	s := NewSegmenter(Config{})

	chunks := s.Segment("Grace period: 30 days.", "document-0", StrategyWhole)
	require.Len(t, chunks, 1)
	assert.Equal(t, index.Chunk{ID: 0, Source: "document-0", Text: "Grace period: 30 days."}, chunks[0])

	long := strings.Repeat("line of policy text\n", 60)
	require.Len(t, s.Segment(long, "d", StrategyWhole), 1)

	assert.Empty(t, s.Segment(" \n\t", "d", StrategyWhole))
}

func TestSegment_UnknownStrategyIsFixed(t *testing.T) {
	s := NewSegmenter(Config{ChunkSize: 4})
	text := "abcdefghij"

	assert.Equal(t, s.Segment(text, "d", StrategyFixed), s.Segment(text, "d", Strategy("sentence")))
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyFixed, false},
		{"fixed", StrategyFixed, false},
		{" Clause ", StrategyClause, false},
		{"WHOLE", StrategyWhole, false},
		{"sentence", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownStrategy, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
