package memory

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libportal/internal/model"
	"libportal/internal/repository"
)

func put(t *testing.T, s *Store, id, data string, at time.Time) {
	t.Helper()
	_, err := s.Create(context.Background(), &model.Document{
		ID: id, Collection: "staff", Data: []byte(data), CreatedAt: at, UpdatedAt: at,
	})
	require.NoError(t, err)
}

func TestStore_ListOrdering(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	put(t, s, "a", `{"position":10,"lastName":"Zed","department":"ICT"}`, base)
	put(t, s, "b", `{"position":2,"lastName":"Abe","department":"ICT"}`, base.Add(time.Minute))
	put(t, s, "c", `{"lastName":"Moe","department":"Serials"}`, base.Add(2*time.Minute))

	ctx := context.Background()

	items, err := s.List(ctx, "staff", repository.ListQuery{Order: model.Order{Field: "position", Numeric: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(items))

	items, err = s.List(ctx, "staff", repository.ListQuery{Order: model.Order{Field: "lastName"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(items))

	items, err = s.List(ctx, "staff", repository.ListQuery{Order: model.Order{Field: model.FieldCreatedAt, Desc: true}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(items))

	items, err = s.List(ctx, "staff", repository.ListQuery{Filters: map[string]string{"department": "ICT"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(items))
}

func TestStore_UpdateDeleteMissing(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Update(ctx, &model.Document{ID: "x", Collection: "news", Data: []byte(`{}`)})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.FindByID(ctx, "news", "x")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, s.Delete(ctx, "news", "x"))
}

func TestStore_NextCounterSeedsFromExisting(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Create(ctx, &model.Document{ID: "g1", Collection: "gallery", Data: []byte(`{"counter":41}`)})
	require.NoError(t, err)

	n, err := s.NextCounter(ctx, "gallery", "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = s.NextCounter(ctx, "gallery", "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(43), n)
}

func TestStore_NextCounterConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	got := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.NextCounter(ctx, "eresources", "counter")
			assert.NoError(t, err)
			got <- n
		}()
	}
	wg.Wait()
	close(got)

	seen := map[int64]bool{}
	for n := range got {
		assert.False(t, seen[n], "duplicate counter %d", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestStore_Increment(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Create(ctx, &model.Document{ID: "n1", Collection: "news", Data: []byte(`{"title":"T","views":0}`)})
	require.NoError(t, err)

	d, err := s.Increment(ctx, "news", "n1", "views")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","views":1}`, string(d.Data))

	_, err = s.Increment(ctx, "news", "nope", "views")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_ToggleMember(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Create(ctx, &model.Document{ID: "n1", Collection: "news", Data: []byte(`{"title":"T","likes":["a"]}`)})
	require.NoError(t, err)

	d, err := s.ToggleMember(ctx, "news", "n1", "likes", "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","likes":["a","b"]}`, string(d.Data))

	d, err = s.ToggleMember(ctx, "news", "n1", "likes", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","likes":["b"]}`, string(d.Data))

	_, err = s.ToggleMember(ctx, "news", "nope", "likes", "a")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_ToggleMemberConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Create(ctx, &model.Document{ID: "n1", Collection: "news", Data: []byte(`{"likes":[]}`)})
	require.NoError(t, err)

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.ToggleMember(ctx, "news", "n1", "likes", "user-"+strconv.Itoa(i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	d, err := s.FindByID(ctx, "news", "n1")
	require.NoError(t, err)
	assert.Len(t, fields(*d)["likes"], workers)
}

func TestStore_UpdateKeepsStoredFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Create(ctx, &model.Document{ID: "n1", Collection: "news", Data: []byte(`{"title":"T","views":0,"likes":[]}`)})
	require.NoError(t, err)
	_, err = s.Increment(ctx, "news", "n1", "views")
	require.NoError(t, err)

	d, err := s.Update(ctx, &model.Document{
		ID: "n1", Collection: "news",
		Data: []byte(`{"title":"New","views":0,"likes":["stale"]}`),
		Keep: []string{"views", "likes"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"New","views":1,"likes":[]}`, string(d.Data))
}

func ids(docs []model.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
