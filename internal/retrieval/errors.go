package retrieval

import "errors"

var (
	// ErrEmptyDocument means segmentation produced no chunks; there is nothing to index.
	ErrEmptyDocument = errors.New("document produced no chunks")

	// ErrIndexNotBuilt means a query arrived before any successful build.
	ErrIndexNotBuilt = errors.New("index has not been built")

	// ErrEmbedder wraps failures of the embedding backend.
	ErrEmbedder = errors.New("embedder failure")
)
