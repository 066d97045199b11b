package model

// Coordinates is a map position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Library is a branch or faculty library shown in the public directory.
type Library struct {
	Meta
	Name            string       `json:"name" validate:"required,max=200"`
	Faculty         string       `json:"faculty" validate:"required,max=200"`
	Description     string       `json:"description"`
	Location        string       `json:"location"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	Books           string       `json:"books"`
	Journals        string       `json:"journals"`
	Articles        string       `json:"articles"`
	SeatingCapacity string       `json:"seatingCapacity"`
	OpeningHours    string       `json:"openingHours"`
	Email           string       `json:"email" validate:"omitempty,email"`
	Phone           string       `json:"phone"`
	Website         string       `json:"website" validate:"omitempty,url"`
	Librarian       string       `json:"librarian"`
	Services        []string     `json:"services" validate:"dive,required"`
	Facilities      []string     `json:"facilities" validate:"dive,required"`
	Departments     []string     `json:"departments" validate:"dive,required"`
	ImageURL        string       `json:"imageUrl" validate:"required,url"`
	CoverImageURL   string       `json:"coverImageUrl" validate:"omitempty,url"`
}

func (Library) Schema() Schema {
	return Schema{
		Collection:     CollectionLibraries,
		DefaultOrder:   Order{Field: "name"},
		ImageFields:    []string{"imageUrl", "coverImageUrl"},
		RequiredImages: []string{"imageUrl"},
	}
}

func (l *Library) Normalize() {
	l.Services = nonNil(l.Services)
	l.Facilities = nonNil(l.Facilities)
	l.Departments = nonNil(l.Departments)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
