package model

import "time"

// Collection names.
const (
	CollectionLibraries       = "libraries"
	CollectionLibrarians      = "librarians"
	CollectionStaff           = "staff"
	CollectionGallery         = "gallery"
	CollectionEResources      = "eresources"
	CollectionNews            = "news"
	CollectionRecommendations = "recommendations"
)

// Metadata keys owned by the server. Clients cannot write them.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Meta is embedded by every entity.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetMeta copies stored metadata onto the entity.
func (m *Meta) SetMeta(id string, createdAt, updatedAt time.Time) {
	m.ID = id
	m.CreatedAt = createdAt
	m.UpdatedAt = updatedAt
}

// Order describes how a collection is sorted. Field is a JSON field name or
// one of the metadata timestamps.
type Order struct {
	Field   string
	Numeric bool
	Desc    bool
}

// Schema describes the storage and editing rules of a collection.
type Schema struct {
	Collection   string
	DefaultOrder Order
	// CounterField is set for collections whose records get a server-assigned
	// display sequence.
	CounterField   string
	ImageFields    []string
	RequiredImages []string
	// PublicCreate allows anonymous visitors to create records.
	PublicCreate bool
	// ManagedFields are changed only by atomic repository operations.
	// Updates keep their stored values unless the caller sends them.
	ManagedFields []string
	// UniqueField names a string field that must not repeat within the
	// collection. Duplicates get a numeric suffix.
	UniqueField string
}

// Entity is implemented by every content type.
type Entity interface {
	Schema() Schema
}

// Normalizer fixes up derived fields before every write.
type Normalizer interface {
	Normalize()
}

// CreatePreparer resets fields that only the server may initialise.
type CreatePreparer interface {
	PrepareCreate()
}

// Keyed is implemented by entities whose Schema names a UniqueField.
type Keyed interface {
	UniqueKey() string
	SetUniqueKey(key string)
}

// Counted is implemented by entities carrying a display counter.
type Counted interface {
	SetCounter(n int64)
}
