package entries

import (
	"context"
	"errors"

	"grateful/internal/core"
)

var (
	ErrNotFound    = errors.New("entry not found")
	ErrDuplicateID = errors.New("entry id already exists")
)

// Ports for the entry store adapters.
type (
	EntryAppender interface {
		// Append persists e and returns it with its ID. A non-empty ID is kept;
		// an empty one is assigned. Reusing an ID fails with ErrDuplicateID.
		Append(ctx context.Context, e core.Entry) (core.Entry, error)
	}

	// EntryLister reads the whole log.
	EntryLister interface {
		// ListAll returns every entry in no particular order.
		ListAll(ctx context.Context) ([]core.Entry, error)
		// ListNewestFirst returns every entry ordered by creation time, descending.
		ListNewestFirst(ctx context.Context) ([]core.Entry, error)
	}

	EntryDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	Store interface {
		EntryAppender
		EntryLister
		EntryDeleter
	}
)
