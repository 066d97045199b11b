package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dr. Jane Doe", "dr-jane-doe"},
		{"  Ahmed   Bello  ", "ahmed-bello"},
		{"already-a-slug", "already-a-slug"},
		{"Café Ñandú", "café-ñandú"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestFields(t *testing.T) {
	f := Fields[EResource]()

	assert.Contains(t, f, "name")
	assert.Contains(t, f, "stats")
	assert.NotContains(t, f, "counter")
	assert.NotContains(t, f, "id")
	assert.NotContains(t, f, "createdAt")

	assert.True(t, f["features"].IsList())
	assert.False(t, f["name"].IsList())
	assert.Equal(t, reflect.Map, f["stats"].Type.Kind())
}

func TestIsServerField(t *testing.T) {
	g := GalleryItem{}.Schema()
	assert.True(t, IsServerField(g, "counter"))
	assert.True(t, IsServerField(g, "id"))
	assert.False(t, IsServerField(g, "title"))

	n := News{}.Schema()
	assert.False(t, IsServerField(n, "counter"))
	assert.True(t, IsServerField(n, "updatedAt"))
}

func TestNewsPrepareCreate(t *testing.T) {
	n := &News{Likes: []string{"u1"}, Views: 9}
	n.PrepareCreate()

	assert.Equal(t, []string{}, n.Likes)
	assert.Zero(t, n.Views)
	assert.Equal(t, NewsDraft, n.Status)

	p := &News{Status: NewsPublished}
	p.PrepareCreate()
	assert.Equal(t, NewsPublished, p.Status)
}

func TestLibrarianNormalize(t *testing.T) {
	l := &Librarian{FullName: "Mrs. Grace Obi"}
	l.Normalize()
	assert.Equal(t, "mrs-grace-obi", l.Slug)

	l.Slug = "Custom Slug"
	l.Normalize()
	assert.Equal(t, "custom-slug", l.Slug)
}
