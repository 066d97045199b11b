package model

// Staff is a member of the staff directory, ordered by Position.
type Staff struct {
	Meta
	FirstName   string `json:"firstName" validate:"required,max=100"`
	MiddleName  string `json:"middleName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	Position    int    `json:"position" validate:"gte=0"`
}

func (Staff) Schema() Schema {
	return Schema{
		Collection:   CollectionStaff,
		DefaultOrder: Order{Field: "position", Numeric: true},
		ImageFields:  []string{"imageUrl"},
	}
}
