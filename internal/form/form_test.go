package form

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libportal/internal/model"
	"libportal/internal/repository/memory"
	"libportal/internal/service"
	svcMocks "libportal/internal/service/mocks"
)

func newEResourceForm(t *testing.T) (*Form[model.EResource], *svcMocks.MockContentService[model.EResource]) {
	t.Helper()
	w := new(svcMocks.MockContentService[model.EResource])
	return New[model.EResource](w, new(svcMocks.MockUploadService), zerolog.Nop()), w
}

func TestForm_PasteRecognisedFields(t *testing.T) {
	f, _ := newEResourceForm(t)
	require.NoError(t, f.Set("color", "teal"))

	applied, err := f.Paste(`{"name":"Test DB","category":"Science"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "name"}, applied)
	assert.Equal(t, map[string]any{
		"name":     "Test DB",
		"category": "Science",
		"color":    "teal",
	}, f.Values())
}

func TestForm_PasteMalformedLeavesFormUnchanged(t *testing.T) {
	inputs := []string{
		`{name: }`,
		`({"name": "x"})`,
		`["name"]`,
		`null`,
		``,
		`{"name":"x"} {"category":"y"}`,
		`{"name":"x","features":"not a list"}`,
		`{"name":"x","stats":{"users":3}}`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			f, _ := newEResourceForm(t)
			require.NoError(t, f.Set("name", "Original"))

			_, err := f.Paste(in)
			assert.ErrorIs(t, err, ErrPaste)
			assert.Equal(t, map[string]any{"name": "Original"}, f.Values())

			notices := f.Notices()
			require.NotEmpty(t, notices)
			assert.Equal(t, Error, notices[len(notices)-1].Level)
		})
	}
}

func TestForm_PasteIgnoresUnknownAndServerKeys(t *testing.T) {
	f, _ := newEResourceForm(t)
	applied, err := f.Paste(`{"name":"JSTOR","counter":9,"id":"x","payload":"alert(1)","features":["Full text"],"link":null}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"features", "name"}, applied)
	assert.Equal(t, map[string]any{"name": "JSTOR", "features": []string{"Full text"}}, f.Values())
}

func TestForm_Tags(t *testing.T) {
	f, _ := newEResourceForm(t)

	require.NoError(t, f.AddTag("subjects", "  History "))
	require.NoError(t, f.AddTag("subjects", "Law"))
	assert.ErrorIs(t, f.AddTag("subjects", "   "), ErrEmptyTag)
	assert.ErrorIs(t, f.AddTag("name", "x"), ErrNotList)
	assert.ErrorIs(t, f.AddTag("nope", "x"), ErrUnknownField)

	v, _ := f.Value("subjects")
	assert.Equal(t, []string{"History", "Law"}, v)

	require.NoError(t, f.RemoveTag("subjects", 0))
	assert.ErrorIs(t, f.RemoveTag("subjects", 5), ErrTagIndex)
	v, _ = f.Value("subjects")
	assert.Equal(t, []string{"Law"}, v)
}

func TestForm_UploadGatesSubmit(t *testing.T) {
	ctx := context.Background()
	w := new(svcMocks.MockContentService[model.GalleryItem])
	up := new(svcMocks.MockUploadService)
	f := New[model.GalleryItem](w, up, zerolog.Nop())
	require.NoError(t, f.Set("title", "Reading room"))

	assert.False(t, f.CanSubmit())
	assert.Equal(t, []string{"imageUrl"}, f.MissingImages())

	_, err := f.Submit(ctx)
	assert.ErrorIs(t, err, ErrMissingImages)
	w.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	up.On("UploadImage", ctx, mock.Anything, "bad.png", "image/png", int64(3)).
		Return(nil, service.ErrUnsupportedMedia).Once()
	err = f.UploadImage(ctx, "imageUrl", "bad.png", "image/png", strings.NewReader("abc"), 3)
	assert.ErrorIs(t, err, service.ErrUnsupportedMedia)
	_, ok := f.Value("imageUrl")
	assert.False(t, ok)
	assert.False(t, f.CanSubmit())

	up.On("UploadImage", ctx, mock.Anything, "room.png", "image/png", int64(3)).
		Return(&service.UploadResult{SecureURL: "https://cdn.test/library/room.png"}, nil).Once()
	require.NoError(t, f.UploadImage(ctx, "imageUrl", "room.png", "image/png", strings.NewReader("abc"), 3))
	assert.True(t, f.CanSubmit())

	assert.ErrorIs(t, f.UploadImage(ctx, "title", "x.png", "image/png", strings.NewReader("abc"), 3), ErrNotImage)
	up.AssertExpectations(t)
}

func TestForm_SubmitFailureKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	f, w := newEResourceForm(t)
	require.NoError(t, f.Set("name", "JSTOR"))

	w.On("Create", ctx, map[string]any{"name": "JSTOR"}).Return(nil, errors.New("network down")).Once()
	_, err := f.Submit(ctx)
	assert.Error(t, err)
	assert.False(t, f.Closed())
	notices := f.Notices()
	assert.Equal(t, Notice{Level: Error, Message: "Save failed: please try again"}, notices[len(notices)-1])

	w.On("Create", ctx, map[string]any{"name": "JSTOR"}).Return(&model.EResource{Name: "JSTOR", Counter: 1}, nil).Once()
	saved, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Counter)
	assert.True(t, f.Closed())
	w.AssertExpectations(t)
}

func TestForm_EditAndCancel(t *testing.T) {
	ctx := context.Background()
	svc := service.NewContentService[model.Staff](memory.New(), nil, zerolog.Nop())
	existing, err := svc.Create(ctx, map[string]any{"firstName": "Ada", "lastName": "Obi", "position": 2})
	require.NoError(t, err)

	closed := 0
	f, err := Edit[model.Staff](svc, nil, zerolog.Nop(), existing.ID, *existing, OnClose(func() { closed++ }))
	require.NoError(t, err)
	assert.True(t, f.Editing())
	v, _ := f.Value("position")
	assert.Equal(t, 2, v)

	require.NoError(t, f.Set("lastName", "Okafor"))
	f.Cancel()
	assert.True(t, f.Closed())
	assert.Equal(t, 1, closed)
	v, _ = f.Value("lastName")
	assert.Equal(t, "Obi", v)
	assert.ErrorIs(t, f.Set("lastName", "x"), ErrClosed)

	stored, err := svc.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Obi", stored.LastName)

	f, err = Edit[model.Staff](svc, nil, zerolog.Nop(), existing.ID, *stored)
	require.NoError(t, err)
	require.NoError(t, f.Set("position", 7))
	saved, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, saved.Position)
	assert.Equal(t, "Ada", saved.FirstName)
}

func TestForm_SubmitValidationNotice(t *testing.T) {
	svc := service.NewContentService[model.Staff](memory.New(), nil, zerolog.Nop())
	f := New[model.Staff](svc, nil, zerolog.Nop())
	require.NoError(t, f.Set("firstName", "Ada"))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.False(t, f.Closed())
	notices := f.Notices()
	assert.Contains(t, notices[len(notices)-1].Message, "lastName is required")
}

func TestForm_EditClearedFieldIsSaved(t *testing.T) {
	ctx := context.Background()
	svc := service.NewContentService[model.GalleryItem](memory.New(), nil, zerolog.Nop())
	existing, err := svc.Create(ctx, map[string]any{
		"title":        "Reading room",
		"imageUrl":     "https://cdn.test/library/room.png",
		"photographer": "Ann",
	})
	require.NoError(t, err)

	f, err := Edit[model.GalleryItem](svc, nil, zerolog.Nop(), existing.ID, *existing)
	require.NoError(t, err)
	require.NoError(t, f.Set("photographer", nil))
	_, ok := f.Value("photographer")
	assert.False(t, ok)

	saved, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved.Photographer)
	assert.Equal(t, "Reading room", saved.Title)

	stored, err := svc.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Photographer)
	assert.Equal(t, existing.Counter, stored.Counter)
}

func TestForm_EditClearedCollectionsAreEmpty(t *testing.T) {
	ctx := context.Background()
	w := new(svcMocks.MockContentService[model.EResource])
	existing := model.EResource{
		Name:     "JSTOR",
		Features: []string{"Full text"},
		Stats:    map[string]string{"journals": "12000"},
	}
	f, err := Edit[model.EResource](w, nil, zerolog.Nop(), "e1", existing)
	require.NoError(t, err)
	require.NoError(t, f.Set("features", nil))
	require.NoError(t, f.Set("stats", nil))

	w.On("Update", ctx, "e1", mock.MatchedBy(func(m map[string]any) bool {
		features, ok := m["features"].([]string)
		if !ok || features == nil || len(features) != 0 {
			return false
		}
		stats, ok := m["stats"].(map[string]string)
		return ok && stats != nil && len(stats) == 0 && m["name"] == "JSTOR"
	})).Return(&model.EResource{Name: "JSTOR"}, nil).Once()

	_, err = f.Submit(ctx)
	require.NoError(t, err)
	w.AssertExpectations(t)
}
