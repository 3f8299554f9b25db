// Package store talks to the document collection that holds posts.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no document has the requested id
	ErrNotFound = errors.New("document not found")
	// ErrSlugTaken is returned when a write would give a second document the same slug
	ErrSlugTaken = errors.New("slug already claimed by another document")
	// ErrOrderUnavailable is returned when the collection cannot serve the requested order
	ErrOrderUnavailable = errors.New("requested order is not available")
)

// Order is a listing order the collection may be asked to serve
type Order int

const (
	OrderNone Order = iota
	OrderUpdatedDesc
)

// Counter fields that can be incremented in place
const (
	CounterViews = "views"
	CounterLikes = "likes"
)

// Collection is the backing document collection. Implementations do not validate documents;
// the repository does that on both sides of every call.
type Collection interface {
	// Get loads a document by id
	Get(ctx context.Context, id string) (*Document, error)
	// FindBySlug returns every document stored under an exact slug
	FindBySlug(ctx context.Context, slug string) ([]*Document, error)
	// NewID allocates an id for a document about to be inserted
	NewID() string
	// Insert stores a new document under the id from NewID
	Insert(ctx context.Context, doc *Document) error
	// Replace overwrites an existing document
	Replace(ctx context.Context, doc *Document) error
	// Delete removes a document permanently
	Delete(ctx context.Context, id string) error
	// ListPublished returns published documents, newest publish time first
	ListPublished(ctx context.Context) ([]*Document, error)
	// ListAll returns every document in the requested order or ErrOrderUnavailable
	ListAll(ctx context.Context, order Order) ([]*Document, error)
	// Increment adds delta to a counter field and returns the new value
	Increment(ctx context.Context, id, field string, delta int64) (int64, error)
	// Close releases the underlying connection
	Close() error
}
