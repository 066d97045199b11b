package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"libportal/internal/model"
	"libportal/internal/repository"
)

// Publisher is notified after every successful write to a collection.
type Publisher interface {
	Publish(collection string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string) {}

// ListOptions narrows and orders a collection listing.
type ListOptions struct {
	// OrderBy overrides the collection's default order. It must name a field of the entity.
	OrderBy string
	Desc    bool
	Limit   int
	// Filters are equality matches on string fields.
	Filters map[string]string
}

// ContentService defines the use cases shared by every content collection.
// Every write is decoded into the entity type and validated before it is stored.
type ContentService[T model.Entity] interface {
	// Schema returns the collection rules.
	Schema() model.Schema

	// List returns the full ordered result set.
	List(ctx context.Context, opts ListOptions) ([]T, error)

	// Get returns a single record by ID.
	Get(ctx context.Context, id string) (*T, error)

	// GetBy returns the first record whose string field equals value.
	GetBy(ctx context.Context, field, value string) (*T, error)

	// Create strips null fields, validates and inserts a new record with
	// server-assigned ID, timestamps and, for counted collections, counter.
	Create(ctx context.Context, fields map[string]any) (*T, error)

	// Update merges fields into an existing record, validates the result and
	// refreshes its update timestamp.
	Update(ctx context.Context, id string, fields map[string]any) (*T, error)

	// Delete removes an existing record.
	Delete(ctx context.Context, id string) error
}

// contentService is the concrete implementation of ContentService.
type contentService[T model.Entity] struct {
	repo   repository.DocumentRepository
	pub    Publisher
	schema model.Schema
	fields map[string]model.Field
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// NewContentService constructs the service for entity type T.
// pub may be nil when nobody observes changes.
func NewContentService[T model.Entity](repo repository.DocumentRepository, pub Publisher, logger zerolog.Logger) ContentService[T] {
	return newContentService[T](repo, pub, logger)
}

func newContentService[T model.Entity](repo repository.DocumentRepository, pub Publisher, logger zerolog.Logger) *contentService[T] {
	if pub == nil {
		pub = nopPublisher{}
	}
	var zero T
	schema := zero.Schema()
	return &contentService[T]{
		repo:   repo,
		pub:    pub,
		schema: schema,
		fields: model.Fields[T](),
		log:    logger.With().Str("component", "content").Str("collection", schema.Collection).Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (s *contentService[T]) Schema() model.Schema { return s.schema }

func (s *contentService[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	q := repository.ListQuery{Order: s.schema.DefaultOrder}
	if opts.Limit > 0 {
		q.Limit = opts.Limit
	}

	if opts.OrderBy != "" {
		order, err := s.orderFor(opts.OrderBy, opts.Desc)
		if err != nil {
			return nil, err
		}
		q.Order = order
	}

	if len(opts.Filters) > 0 {
		q.Filters = make(map[string]string, len(opts.Filters))
		var bad []FieldError
		for k, v := range opts.Filters {
			f, ok := s.fields[k]
			if !ok || f.Type.Kind() != reflect.String {
				bad = append(bad, FieldError{Field: k, Message: k + " cannot be used as a filter"})
				continue
			}
			q.Filters[k] = v
		}
		if len(bad) > 0 {
			sort.Slice(bad, func(i, j int) bool { return bad[i].Field < bad[j].Field })
			return nil, newValidationError(bad...)
		}
	}

	docs, err := s.repo.List(ctx, s.schema.Collection, q)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := s.decode(d)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return items, nil
}

func (s *contentService[T]) orderFor(field string, desc bool) (model.Order, error) {
	switch field {
	case model.FieldCreatedAt, model.FieldUpdatedAt:
		return model.Order{Field: field, Desc: desc}, nil
	}
	if s.schema.CounterField != "" && field == s.schema.CounterField {
		return model.Order{Field: field, Numeric: true, Desc: desc}, nil
	}
	f, ok := s.fields[field]
	if !ok {
		return model.Order{}, newValidationError(FieldError{Field: field, Message: field + " cannot be used for ordering"})
	}
	switch f.Type.Kind() {
	case reflect.String:
		return model.Order{Field: field, Desc: desc}, nil
	case reflect.Int, reflect.Int64, reflect.Float64:
		return model.Order{Field: field, Numeric: true, Desc: desc}, nil
	}
	return model.Order{}, newValidationError(FieldError{Field: field, Message: field + " cannot be used for ordering"})
}

func (s *contentService[T]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	doc, err := s.repo.FindByID(ctx, s.schema.Collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decode(*doc)
}

func (s *contentService[T]) GetBy(ctx context.Context, field, value string) (*T, error) {
	items, err := s.List(ctx, ListOptions{Filters: map[string]string{field: value}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (s *contentService[T]) Create(ctx context.Context, fields map[string]any) (*T, error) {
	v, err := decodeFields[T](s.clientFields(fields), s.fields)
	if err != nil {
		return nil, err
	}
	if p, ok := any(&v).(model.CreatePreparer); ok {
		p.PrepareCreate()
	}
	if err := s.prepare(&v); err != nil {
		return nil, err
	}
	if err := s.uniqueKey(ctx, &v, ""); err != nil {
		return nil, err
	}

	if s.schema.CounterField != "" {
		n, err := s.repo.NextCounter(ctx, s.schema.Collection, s.schema.CounterField)
		if err != nil {
			return nil, fmt.Errorf("next counter: %w", err)
		}
		if c, ok := any(&v).(model.Counted); ok {
			c.SetCounter(n)
		}
	}

	data, err := encodeData(v)
	if err != nil {
		return nil, err
	}
	now := s.now()
	stored, err := s.repo.Create(ctx, &model.Document{
		ID:         s.newID(),
		Collection: s.schema.Collection,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.log.Info().Str("id", stored.ID).Msg("document created")
	s.pub.Publish(s.schema.Collection)
	return s.decode(*stored)
}

func (s *contentService[T]) Update(ctx context.Context, id string, fields map[string]any) (*T, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	existing, err := s.repo.FindByID(ctx, s.schema.Collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var current map[string]any
	if err := json.Unmarshal(existing.Data, &current); err != nil {
		return nil, fmt.Errorf("decode stored document %s: %w", id, err)
	}
	merged := make(map[string]any, len(current)+len(fields))
	for k, val := range current {
		if _, ok := s.fields[k]; ok && val != nil {
			merged[k] = val
		}
	}
	client := s.clientFields(fields)
	for k, val := range client {
		merged[k] = val
	}
	var keep []string
	for _, k := range s.schema.ManagedFields {
		if _, sent := client[k]; !sent {
			keep = append(keep, k)
		}
	}

	v, err := decodeFields[T](merged, s.fields)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(&v); err != nil {
		return nil, err
	}
	if err := s.uniqueKey(ctx, &v, id); err != nil {
		return nil, err
	}
	if s.schema.CounterField != "" {
		if n, ok := current[s.schema.CounterField].(float64); ok {
			if c, ok := any(&v).(model.Counted); ok {
				c.SetCounter(int64(n))
			}
		}
	}

	data, err := encodeData(v)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.Update(ctx, &model.Document{
		ID:         id,
		Collection: s.schema.Collection,
		Data:       data,
		UpdatedAt:  s.now(),
		Keep:       keep,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db update failed: %w", err)
	}

	s.log.Info().Str("id", id).Msg("document updated")
	s.pub.Publish(s.schema.Collection)
	return s.decode(*stored)
}

func (s *contentService[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if _, err := s.repo.FindByID(ctx, s.schema.Collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, s.schema.Collection, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("document deleted")
	s.pub.Publish(s.schema.Collection)
	return nil
}

// clientFields strips nulls and drops keys the server owns.
func (s *contentService[T]) clientFields(in map[string]any) map[string]any {
	out := stripNulls(in)
	for k := range out {
		if model.IsServerField(s.schema, k) {
			delete(out, k)
		}
	}
	return out
}

func (s *contentService[T]) prepare(v *T) error {
	if n, ok := any(v).(model.Normalizer); ok {
		n.Normalize()
	}
	return validateEntity(*v)
}

// uniqueKey suffixes the entity key with -2, -3, ... until no other record
// of the collection holds it. selfID is the record being updated, if any.
func (s *contentService[T]) uniqueKey(ctx context.Context, v *T, selfID string) error {
	k, ok := any(v).(model.Keyed)
	if !ok || s.schema.UniqueField == "" || k.UniqueKey() == "" {
		return nil
	}
	base := k.UniqueKey()
	for n := 1; ; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		docs, err := s.repo.List(ctx, s.schema.Collection, repository.ListQuery{
			Filters: map[string]string{s.schema.UniqueField: candidate},
			Limit:   2,
		})
		if err != nil {
			return fmt.Errorf("check %s: %w", s.schema.UniqueField, err)
		}
		taken := false
		for _, d := range docs {
			if d.ID != selfID {
				taken = true
				break
			}
		}
		if !taken {
			k.SetUniqueKey(candidate)
			return nil
		}
	}
}

func (s *contentService[T]) decode(d model.Document) (*T, error) {
	var v T
	if err := json.Unmarshal(d.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	if m, ok := any(&v).(interface {
		SetMeta(id string, createdAt, updatedAt time.Time)
	}); ok {
		m.SetMeta(d.ID, d.CreatedAt, d.UpdatedAt)
	}
	return &v, nil
}

// encodeData serialises an entity without the metadata keys stored in columns.
func encodeData(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, model.FieldID)
	delete(m, model.FieldCreatedAt)
	delete(m, model.FieldUpdatedAt)
	return json.Marshal(m)
}
