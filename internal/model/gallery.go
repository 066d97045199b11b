package model

// GalleryItem is a photo in the public gallery.
type GalleryItem struct {
	Meta
	ImageURL     string `json:"imageUrl" validate:"required,url"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	Photographer string `json:"photographer"`
	Counter      int64  `json:"counter"`
}

func (GalleryItem) Schema() Schema {
	return Schema{
		Collection:     CollectionGallery,
		DefaultOrder:   Order{Field: "counter", Numeric: true, Desc: true},
		CounterField:   "counter",
		ImageFields:    []string{"imageUrl"},
		RequiredImages: []string{"imageUrl"},
	}
}

func (g *GalleryItem) SetCounter(n int64) { g.Counter = n }
