package model

// Librarian is a profile on the public librarian pages, addressable by slug.
type Librarian struct {
	Meta
	FullName          string `json:"fullName" validate:"required,max=200"`
	Designation       string `json:"designation" validate:"required,max=200"`
	Department        string `json:"department"`
	Office            string `json:"office"`
	Period            string `json:"period"`
	YearsOfExperience int    `json:"yearsOfExperience" validate:"gte=0"`
	Education         string `json:"education"`
	Bio               string `json:"bio"`
	Research          string `json:"research"`
	Email             string `json:"email" validate:"omitempty,email"`
	Phone             string `json:"phone"`
	ImageURL          string `json:"imageUrl" validate:"required,url"`
	Slug              string `json:"slug" validate:"omitempty,max=200"`
}

func (Librarian) Schema() Schema {
	return Schema{
		Collection:     CollectionLibrarians,
		DefaultOrder:   Order{Field: FieldCreatedAt},
		ImageFields:    []string{"imageUrl"},
		RequiredImages: []string{"imageUrl"},
		UniqueField:    "slug",
	}
}

// Normalize derives the slug from the full name when none was given.
func (l *Librarian) Normalize() {
	if l.Slug == "" {
		l.Slug = Slugify(l.FullName)
	} else {
		l.Slug = Slugify(l.Slug)
	}
}

func (l *Librarian) UniqueKey() string       { return l.Slug }
func (l *Librarian) SetUniqueKey(key string) { l.Slug = key }
