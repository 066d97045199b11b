package model

// News statuses.
const (
	NewsDraft     = "draft"
	NewsPublished = "published"
	NewsArchived  = "archived"
)

// News is an announcement. It is the only entity with engagement counters.
type News struct {
	Meta
	Title       string   `json:"title" validate:"required,max=300"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description string   `json:"description" validate:"required"`
	ImageURL    string   `json:"imageUrl" validate:"omitempty,url"`
	Author      string   `json:"author" validate:"required,max=200"`
	Status      string   `json:"status" validate:"required,oneof=draft published archived"`
	Tags        []string `json:"tags" validate:"dive,required"`
	Likes       []string `json:"likes" validate:"dive,required"`
	Views       int64    `json:"views" validate:"gte=0"`
	PublishAt   string   `json:"publishAt,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (News) Schema() Schema {
	return Schema{
		Collection:    CollectionNews,
		DefaultOrder:  Order{Field: FieldCreatedAt, Desc: true},
		ImageFields:   []string{"imageUrl"},
		ManagedFields: []string{"likes", "views"},
	}
}

// PrepareCreate zeroes engagement and defaults the status.
func (n *News) PrepareCreate() {
	n.Likes = []string{}
	n.Views = 0
	if n.Status == "" {
		n.Status = NewsDraft
	}
}

func (n *News) Normalize() {
	n.Tags = nonNil(n.Tags)
	n.Likes = nonNil(n.Likes)
}
