package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libportal/internal/model"
	"libportal/internal/repository"
)

var docCols = []string{"id", "collection", "data", "created_at", "updated_at"}

func newRepo(t *testing.T) (*DocumentPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDocumentPostgres(db), mock
}

func TestDocumentPostgres_Create(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:         "3f1e2c9a-0000-4000-8000-000000000001",
		Collection: model.CollectionNews,
		Data:       []byte(`{"title":"Opening"}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	rows := sqlmock.NewRows(docCols).
		AddRow(doc.ID, doc.Collection, []byte(doc.Data), doc.CreatedAt, doc.UpdatedAt)

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Collection, string(doc.Data), doc.CreatedAt, doc.UpdatedAt).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, doc)

	require.NoError(t, err)
	assert.Equal(t, doc.ID, result.ID)
	assert.JSONEq(t, `{"title":"Opening"}`, string(result.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(docCols).
			AddRow("doc-1", "staff", []byte(`{"firstName":"Ada"}`), time.Now(), time.Now())

		mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE collection = $1 AND id = $2")).
			WithArgs("staff", "doc-1").
			WillReturnRows(rows)

		doc, err := repo.FindByID(ctx, "staff", "doc-1")

		require.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
		assert.Equal(t, "staff", doc.Collection)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE collection = $1 AND id = $2")).
			WithArgs("staff", "missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "staff", "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, doc)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_List(t *testing.T) {
	ctx := context.Background()

	t.Run("numeric field order with filter and limit", func(t *testing.T) {
		repo, mock := newRepo(t)
		rows := sqlmock.NewRows(docCols).
			AddRow("a", "gallery", []byte(`{"counter":2}`), time.Now(), time.Now()).
			AddRow("b", "gallery", []byte(`{"counter":1}`), time.Now(), time.Now())

		mock.ExpectQuery(regexp.QuoteMeta(
			"WHERE collection = $1 AND data->>$2 = $3 ORDER BY (data->>'counter')::numeric DESC, id DESC LIMIT 5")).
			WithArgs("gallery", "photographer", "Tunde").
			WillReturnRows(rows)

		items, err := repo.List(ctx, "gallery", repository.ListQuery{
			Order:   model.Order{Field: "counter", Numeric: true, Desc: true},
			Filters: map[string]string{"photographer": "Tunde"},
			Limit:   5,
		})

		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, "a", items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("created at order", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE collection = $1 ORDER BY created_at DESC, id DESC")).
			WithArgs("news").
			WillReturnRows(sqlmock.NewRows(docCols))

		items, err := repo.List(ctx, "news", repository.ListQuery{
			Order: model.Order{Field: model.FieldCreatedAt, Desc: true},
		})

		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unsafe field names", func(t *testing.T) {
		repo, _ := newRepo(t)

		_, err := repo.List(ctx, "news", repository.ListQuery{Order: model.Order{Field: "name'; DROP TABLE documents; --"}})
		assert.ErrorIs(t, err, ErrInvalidField)

		_, err = repo.List(ctx, "news", repository.ListQuery{Filters: map[string]string{"a b": "x"}})
		assert.ErrorIs(t, err, ErrInvalidField)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM documents").WillReturnError(errors.New("db down"))

		_, err := repo.List(ctx, "news", repository.ListQuery{})
		assert.EqualError(t, err, "db down")
	})
}

func TestDocumentPostgres_Update(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	doc := &model.Document{ID: "n1", Collection: "news", Data: []byte(`{"title":"B"}`), UpdatedAt: now}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET data = $1, updated_at = $2 WHERE collection = $3 AND id = $4")).
		WithArgs(`{"title":"B"}`, now, "news", "n1").
		WillReturnRows(sqlmock.NewRows(docCols).AddRow("n1", "news", []byte(`{"title":"B"}`), now, now))

	out, err := repo.Update(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "n1", out.ID)

	mock.ExpectQuery("UPDATE documents").WillReturnError(sql.ErrNoRows)
	_, err = repo.Update(ctx, doc)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_UpdateKeepsManagedFields(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	doc := &model.Document{
		ID: "n1", Collection: "news", Data: []byte(`{"title":"B"}`), UpdatedAt: now,
		Keep: []string{"likes", "views"},
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET data = $1::jsonb || jsonb_strip_nulls(jsonb_build_object($2::text, data->($3::text), $4::text, data->($5::text))), updated_at = $6 WHERE collection = $7 AND id = $8")).
		WithArgs(`{"title":"B"}`, "likes", "likes", "views", "views", now, "news", "n1").
		WillReturnRows(sqlmock.NewRows(docCols).AddRow("n1", "news", []byte(`{"title":"B","views":4,"likes":["u1"]}`), now, now))

	out, err := repo.Update(ctx, doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"B","views":4,"likes":["u1"]}`, string(out.Data))

	doc.Keep = []string{"views'; --"}
	_, err = repo.Update(ctx, doc)
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE collection = $1 AND id = $2")).
		WithArgs("news", "test-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(ctx, "news", "test-id")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_NextCounter(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO collection_counters").
		WithArgs("gallery", "counter").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(7)))

	n, err := repo.NextCounter(ctx, "gallery", "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = repo.NextCounter(ctx, "gallery", "counter)")
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Increment(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("UPDATE documents\\s+SET data = jsonb_set").
		WithArgs("views", sqlmock.AnyArg(), "news", "n1").
		WillReturnRows(sqlmock.NewRows(docCols).AddRow("n1", "news", []byte(`{"views":3}`), now, now))

	doc, err := repo.Increment(ctx, "news", "n1", "views")
	require.NoError(t, err)
	assert.JSONEq(t, `{"views":3}`, string(doc.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ToggleMember(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("UPDATE documents\\s+SET data = jsonb_set\\(data, ARRAY\\[\\$1::text\\],\\s+CASE WHEN").
		WithArgs("likes", "user-1", sqlmock.AnyArg(), "news", "n1").
		WillReturnRows(sqlmock.NewRows(docCols).AddRow("n1", "news", []byte(`{"likes":["user-1"]}`), now, now))

	doc, err := repo.ToggleMember(ctx, "news", "n1", "likes", "user-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"likes":["user-1"]}`, string(doc.Data))

	mock.ExpectQuery("UPDATE documents").WillReturnError(sql.ErrNoRows)
	_, err = repo.ToggleMember(ctx, "news", "missing", "likes", "user-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = repo.ToggleMember(ctx, "news", "n1", "likes)", "user-1")
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.NoError(t, mock.ExpectationsWereMet())
}
