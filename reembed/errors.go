package reembed

import "errors"

var (
	ErrVectorStoreRequired = errors.New("vector store is required")
	ErrEmbedderRequired    = errors.New("embedder is required")
	ErrScanUnsupported     = errors.New("vector store cannot scan records")
	ErrInvalidBatchSize    = errors.New("batch size must be positive")
)
