package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"libportal/internal/model"
	"libportal/internal/repository"
)

// ErrInvalidField is returned when a query names a field that is not a plain identifier.
var ErrInvalidField = errors.New("invalid field name")

var fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var documentColumns = []string{"id", "collection", "data", "created_at", "updated_at"}

const returningDocument = "RETURNING id, collection, data, created_at, updated_at"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// Documents live in one JSONB table keyed by (collection, id).
type DocumentPostgres struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d    model.Document
		data []byte
	)
	if err := row.Scan(&d.ID, &d.Collection, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Data = data
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q, args, err := r.sb.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.Collection, string(doc.Data), doc.CreatedAt, doc.UpdatedAt).
		Suffix(returningDocument).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	return scanDocument(r.db.QueryRowContext(ctx, q, args...))
}

// FindByID fetches a single document. It returns sql.ErrNoRows when absent.
func (r *DocumentPostgres) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	q, args, err := r.sb.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return scanDocument(r.db.QueryRowContext(ctx, q, args...))
}

// List returns every document of the collection matching the filters, in order.
func (r *DocumentPostgres) List(ctx context.Context, collection string, lq repository.ListQuery) ([]model.Document, error) {
	orderBy, err := orderClause(lq.Order)
	if err != nil {
		return nil, err
	}

	sel := r.sb.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"collection": collection})

	keys := make([]string, 0, len(lq.Filters))
	for k := range lq.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fieldPattern.MatchString(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
		sel = sel.Where(sq.Expr("data->>? = ?", k, lq.Filters[k]))
	}

	sel = sel.OrderBy(orderBy...)
	if lq.Limit > 0 {
		sel = sel.Limit(uint64(lq.Limit))
	}

	q, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update overwrites the document data. It returns sql.ErrNoRows when absent.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	data, err := keepExpr(string(doc.Data), doc.Keep)
	if err != nil {
		return nil, err
	}
	q, args, err := r.sb.Update("documents").
		Set("data", data).
		Set("updated_at", doc.UpdatedAt).
		Where(sq.Eq{"collection": doc.Collection, "id": doc.ID}).
		Suffix(returningDocument).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}
	return scanDocument(r.db.QueryRowContext(ctx, q, args...))
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, collection, id string) error {
	q, args, err := r.sb.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// NextCounter increments the per-collection counter in one statement. The
// first call for a collection seeds the counter from the highest stored value.
func (r *DocumentPostgres) NextCounter(ctx context.Context, collection, field string) (int64, error) {
	if !fieldPattern.MatchString(field) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	const q = `
		INSERT INTO collection_counters (collection, field, value)
		SELECT $1, $2, COALESCE(MAX((data->>$2)::bigint), 0) + 1
		FROM documents
		WHERE collection = $1
		ON CONFLICT (collection, field)
		DO UPDATE SET value = collection_counters.value + 1
		RETURNING value
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, collection, field).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Increment adds one to a numeric data field. It returns sql.ErrNoRows when absent.
func (r *DocumentPostgres) Increment(ctx context.Context, collection, id, field string) (*model.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	const q = `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$1::text], to_jsonb(COALESCE((data->>$1)::bigint, 0) + 1)),
		    updated_at = $2
		WHERE collection = $3 AND id = $4
		RETURNING id, collection, data, created_at, updated_at
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, field, time.Now().UTC(), collection, id))
}

// ToggleMember adds value to the string array under field, or removes it
// when already present, in a single statement.
func (r *DocumentPostgres) ToggleMember(ctx context.Context, collection, id, field, value string) (*model.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	const q = `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$1::text],
		        CASE WHEN COALESCE(data->($1::text), '[]'::jsonb) @> jsonb_build_array($2::text)
		             THEN COALESCE((SELECT jsonb_agg(e) FROM jsonb_array_elements(data->($1::text)) AS e
		                            WHERE e <> to_jsonb($2::text)), '[]'::jsonb)
		             ELSE COALESCE(data->($1::text), '[]'::jsonb) || jsonb_build_array($2::text)
		        END),
		    updated_at = $3
		WHERE collection = $4 AND id = $5
		RETURNING id, collection, data, created_at, updated_at
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, field, value, time.Now().UTC(), collection, id))
}

// keepExpr builds the new data value. Keys in keep retain what the row
// already stores.
func keepExpr(data string, keep []string) (any, error) {
	if len(keep) == 0 {
		return data, nil
	}
	pairs := make([]string, 0, len(keep))
	args := []any{data}
	for _, k := range keep {
		if !fieldPattern.MatchString(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
		pairs = append(pairs, "?::text, data->(?::text)")
		args = append(args, k, k)
	}
	return sq.Expr("?::jsonb || jsonb_strip_nulls(jsonb_build_object("+strings.Join(pairs, ", ")+"))", args...), nil
}

func orderClause(o model.Order) ([]string, error) {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	var expr string
	switch o.Field {
	case "", model.FieldCreatedAt:
		expr = "created_at"
	case model.FieldUpdatedAt:
		expr = "updated_at"
	default:
		if !fieldPattern.MatchString(o.Field) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, o.Field)
		}
		if o.Numeric {
			expr = fmt.Sprintf("(data->>'%s')::numeric", o.Field)
		} else {
			expr = fmt.Sprintf("data->>'%s'", o.Field)
		}
	}
	return []string{expr + " " + dir, "id " + dir}, nil
}
