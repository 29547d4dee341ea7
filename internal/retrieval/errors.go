package retrieval

import "fmt"

// DimensionError reports an embedding whose length does not match the
// process-wide configured dimension. It usually means the embedding model
// changed underneath the index and should alert rather than retry.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// EmbedError reports a failure of the external embedding provider
// (network, auth, timeout). It is isolated to the one record or query it
// concerns and is retryable by the caller.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *EmbedError) Unwrap() error {
	return e.Err
}
