package model

// BookRecommendation is a visitor's purchase suggestion.
type BookRecommendation struct {
	Meta
	Title    string `json:"title" validate:"required,max=300"`
	Author   string `json:"author" validate:"required,max=200"`
	Category string `json:"category"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Reason   string `json:"reason" validate:"max=2000"`
}

func (BookRecommendation) Schema() Schema {
	return Schema{
		Collection:   CollectionRecommendations,
		DefaultOrder: Order{Field: FieldCreatedAt, Desc: true},
		PublicCreate: true,
	}
}
