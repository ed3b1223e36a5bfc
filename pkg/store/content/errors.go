package content

import "errors"

// Implementations wrap these with the offending id:
//
//	return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
//
// The file-serving protocol answers every lookup failure with the not-found
// message, so callers only need errors.Is for logging and metrics.
var (
	// ErrContentNotFound indicates nothing is stored under the requested id.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidContentID indicates the id can never name content, e.g. an
	// empty name.
	ErrInvalidContentID = errors.New("invalid content ID")

	// ErrReadOnly is returned by write operations on a store that does not
	// implement WritableContentStore.
	ErrReadOnly = errors.New("content store is read-only")
)
