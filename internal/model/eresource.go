package model

// EResource is a subscribed database or e-journal platform listing.
type EResource struct {
	Meta
	Name        string            `json:"name" validate:"required,max=200"`
	Category    string            `json:"category" validate:"required,max=100"`
	Color       string            `json:"color"`
	Description string            `json:"description"`
	LogoURL     string            `json:"logoUrl" validate:"omitempty,url"`
	Link        string            `json:"link" validate:"omitempty,url"`
	Features    []string          `json:"features" validate:"dive,required"`
	Subjects    []string          `json:"subjects" validate:"dive,required"`
	Stats       map[string]string `json:"stats"`
	Counter     int64             `json:"counter"`
}

func (EResource) Schema() Schema {
	return Schema{
		Collection:   CollectionEResources,
		DefaultOrder: Order{Field: "counter", Numeric: true},
		CounterField: "counter",
		ImageFields:  []string{"logoUrl"},
	}
}

func (e *EResource) SetCounter(n int64) { e.Counter = n }

func (e *EResource) Normalize() {
	e.Features = nonNil(e.Features)
	e.Subjects = nonNil(e.Subjects)
	if e.Stats == nil {
		e.Stats = map[string]string{}
	}
}
