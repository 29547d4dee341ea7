package ingest

import "fmt"

// StorageError reports a failed relational write. The record was not
// persisted; the batch caller should back off before retrying, since the
// store being down fails every following record the same way.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storing ticket %q: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IndexError reports a failed vector index write after the relational row
// already committed. The row is not rolled back: ticket ID exists in
// storage but has no searchable vector until reconciliation re-indexes it.
type IndexError struct {
	ID  int64
	Key string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("indexing ticket %q (id %d): %v", e.Key, e.ID, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
