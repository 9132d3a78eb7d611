package chunker

import "errors"

var (
	errInvalidChunkSize = errors.New("chunker: chunk_size must be > 0")
	errInvalidOverlap   = errors.New("chunker: overlap must satisfy 0 <= overlap < chunk_size")
)
