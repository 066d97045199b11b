package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libportal/internal/repository/memory"
	"libportal/internal/service"
)

const fixture = `
gallery:
  - imageUrl: https://cdn.test/library/a.jpg
    title: Main reading room
  - imageUrl: https://cdn.test/library/b.jpg
    title: Archives
eresources:
  - name: JSTOR
    category: Journals
    features: [Full text, Citation export]
    stats:
      journals: "2,600+"
staff:
  - firstName: Ada
    lastName: Obi
    position: 1
  - firstName: Missing last name
`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	reg := service.NewRegistry(memory.New(), nil, zerolog.Nop())

	res, err := Load(ctx, reg, strings.NewReader(fixture), zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Contains(t, err.Error(), "staff[1]")

	assert.Equal(t, map[string]int{"gallery": 2, "eresources": 1, "staff": 1}, res.Created)
	assert.Equal(t, 4, res.Total())

	items, err := reg.Gallery.List(ctx, service.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Archives", items[0].Title)
	assert.Equal(t, int64(2), items[0].Counter)

	eres, err := reg.EResources.List(ctx, service.ListOptions{})
	require.NoError(t, err)
	require.Len(t, eres, 1)
	assert.Equal(t, map[string]string{"journals": "2,600+"}, eres[0].Stats)
}

func TestLoad_Errors(t *testing.T) {
	reg := service.NewRegistry(memory.New(), nil, zerolog.Nop())

	_, err := Load(context.Background(), reg, strings.NewReader("- just\n- a list\n"), zerolog.Nop())
	assert.Error(t, err)

	_, err = Load(context.Background(), reg, strings.NewReader("books:\n  - title: x\n"), zerolog.Nop())
	assert.ErrorContains(t, err, `unknown collection "books"`)

	_, err = Load(context.Background(), reg, strings.NewReader("news: not-a-list\n"), zerolog.Nop())
	assert.ErrorContains(t, err, "news:")

	res, err := Load(context.Background(), reg, strings.NewReader(""), zerolog.Nop())
	assert.NoError(t, err)
	assert.Zero(t, res.Total())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recommendations:\n  - {title: Dune, author: Frank Herbert, name: Ife, email: ife@example.edu}\n"), 0o600))

	reg := service.NewRegistry(memory.New(), nil, zerolog.Nop())
	res, err := LoadFile(context.Background(), reg, path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created["recommendations"])

	_, err = LoadFile(context.Background(), reg, filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	assert.Error(t, err)
}
