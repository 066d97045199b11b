package repository

import (
	"context"

	"libportal/internal/model"
)

// DocumentRepository defines data access for collection documents.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document. The caller provides ID and timestamps.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document of the collection, or sql.ErrNoRows.
	FindByID(ctx context.Context, collection, id string) (*model.Document, error)

	// List returns the full ordered result set of a collection query.
	List(ctx context.Context, collection string, q ListQuery) ([]model.Document, error)

	// Update replaces the data of an existing document and its updated_at.
	// Keys listed in doc.Keep keep their stored values.
	// It returns sql.ErrNoRows if the document does not exist.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, collection, id string) error

	// NextCounter atomically returns the next value of the collection's
	// display counter stored under field.
	NextCounter(ctx context.Context, collection, field string) (int64, error)

	// Increment atomically adds one to a numeric data field.
	Increment(ctx context.Context, collection, id, field string) (*model.Document, error)

	// ToggleMember atomically adds value to, or removes it from, a string
	// array data field.
	ToggleMember(ctx context.Context, collection, id, field, value string) (*model.Document, error)
}

// ListQuery selects and orders documents of one collection.
type ListQuery struct {
	Order model.Order
	// Filters are equality matches on top-level string data fields.
	Filters map[string]string
	// Limit caps the result set when positive.
	Limit int
}
