package index

import "time"

// Chunk is an indexable slice of document text.
// Chunks are immutable once a build has accepted them.
type Chunk struct {
	ID     int    `json:"id"`     // Ordinal position within one build (0..N-1)
	Source string `json:"source"` // Document identifier the text came from
	Text   string `json:"text"`
}

// Hit is a chunk returned from a search together with its squared Euclidean distance.
type Hit struct {
	Chunk    Chunk
	Distance float64
}

// entry pairs a vector with the chunk it was computed from.
// Keeping both in one value means the vector store and the metadata store cannot drift apart.
type entry struct {
	vector []float32
	chunk  Chunk
}

// generation is one complete, immutable build of the index.
type generation struct {
	id        string
	entries   []entry
	dimension int
	builtAt   time.Time
}

// Stats describes the live generation.
type Stats struct {
	Built      bool      `json:"built"`
	Generation string    `json:"generation,omitempty"`
	Entries    int       `json:"entries"`
	Dimension  int       `json:"dimension"`
	Sources    []string  `json:"sources"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
}
