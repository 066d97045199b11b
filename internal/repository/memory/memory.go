// Package memory is an in-process DocumentRepository with the same ordering
// and counter semantics as the PostgreSQL implementation.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"libportal/internal/model"
	"libportal/internal/repository"
)

// Store keeps documents in maps guarded by a mutex. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	docs     map[string]map[string]model.Document
	counters map[string]int64
	now      func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		docs:     make(map[string]map[string]model.Document),
		counters: make(map[string]int64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.DocumentRepository = (*Store)(nil)

func (s *Store) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.docs[doc.Collection]
	if !ok {
		c = make(map[string]model.Document)
		s.docs[doc.Collection] = c
	}
	if _, exists := c[doc.ID]; exists {
		return nil, fmt.Errorf("duplicate document id %q", doc.ID)
	}
	stored := clone(*doc)
	c[doc.ID] = stored
	out := clone(stored)
	return &out, nil
}

func (s *Store) FindByID(_ context.Context, collection, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[collection][id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := clone(d)
	return &out, nil
}

func (s *Store) List(_ context.Context, collection string, q repository.ListQuery) ([]model.Document, error) {
	s.mu.Lock()
	items := make([]model.Document, 0, len(s.docs[collection]))
	for _, d := range s.docs[collection] {
		items = append(items, clone(d))
	}
	s.mu.Unlock()

	if len(q.Filters) > 0 {
		kept := items[:0]
		for _, d := range items {
			if matches(d, q.Filters) {
				kept = append(kept, d)
			}
		}
		items = kept
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j], q.Order)
		if c == 0 {
			c = compareStrings(items[i].ID, items[j].ID)
		}
		if q.Order.Desc {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (s *Store) Update(_ context.Context, doc *model.Document) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.docs[doc.Collection][doc.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	data, err := keepFields(cur.Data, doc.Data, doc.Keep)
	if err != nil {
		return nil, err
	}
	cur.Data = data
	cur.UpdatedAt = doc.UpdatedAt
	s.docs[doc.Collection][doc.ID] = cur
	out := clone(cur)
	return &out, nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

// NextCounter seeds from the highest stored value on first use, then increments.
func (s *Store) NextCounter(_ context.Context, collection, field string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := collection + "/" + field
	n, ok := s.counters[key]
	if !ok {
		for _, d := range s.docs[collection] {
			if v, ok := numberField(d, field); ok && int64(v) > n {
				n = int64(v)
			}
		}
	}
	n++
	s.counters[key] = n
	return n, nil
}

func (s *Store) Increment(_ context.Context, collection, id, field string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.docs[collection][id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	var data map[string]any
	if err := json.Unmarshal(cur.Data, &data); err != nil {
		return nil, err
	}
	v, _ := numberField(cur, field)
	data[field] = int64(v) + 1
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	cur.Data = raw
	cur.UpdatedAt = s.now()
	s.docs[collection][id] = cur
	out := clone(cur)
	return &out, nil
}

// ToggleMember adds value to the string array under field, or removes it
// when already present.
func (s *Store) ToggleMember(_ context.Context, collection, id, field, value string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.docs[collection][id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	var data map[string]any
	if err := json.Unmarshal(cur.Data, &data); err != nil {
		return nil, err
	}
	existing, _ := data[field].([]any)
	members := make([]any, 0, len(existing)+1)
	found := false
	for _, m := range existing {
		if m == value {
			found = true
			continue
		}
		members = append(members, m)
	}
	if !found {
		members = append(members, value)
	}
	data[field] = members
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	cur.Data = raw
	cur.UpdatedAt = s.now()
	s.docs[collection][id] = cur
	out := clone(cur)
	return &out, nil
}

// keepFields returns next with the stored values of keep copied over from cur.
func keepFields(cur, next json.RawMessage, keep []string) (json.RawMessage, error) {
	if len(keep) == 0 {
		return append(json.RawMessage(nil), next...), nil
	}
	var stored, merged map[string]json.RawMessage
	if err := json.Unmarshal(cur, &stored); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(next, &merged); err != nil {
		return nil, err
	}
	if merged == nil {
		merged = make(map[string]json.RawMessage)
	}
	for _, k := range keep {
		if v, ok := stored[k]; ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func clone(d model.Document) model.Document {
	d.Data = append(json.RawMessage(nil), d.Data...)
	return d
}

func fields(d model.Document) map[string]any {
	var m map[string]any
	_ = json.Unmarshal(d.Data, &m)
	return m
}

func matches(d model.Document, filters map[string]string) bool {
	m := fields(d)
	for k, want := range filters {
		got, ok := m[k].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func numberField(d model.Document, field string) (float64, bool) {
	switch v := fields(d)[field].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func compare(a, b model.Document, o model.Order) int {
	switch o.Field {
	case "", model.FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case model.FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	if o.Numeric {
		av, aok := numberField(a, o.Field)
		bv, bok := numberField(b, o.Field)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	as, _ := fields(a)[o.Field].(string)
	bs, _ := fields(b)[o.Field].(string)
	return compareStrings(as, bs)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
