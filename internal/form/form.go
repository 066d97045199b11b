// Package form holds the editing state of one content record: field input,
// image uploads, pasted data and the final write. A Form is not safe for
// concurrent use.
package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"libportal/internal/model"
	"libportal/internal/service"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrNotList       = errors.New("field is not a list")
	ErrEmptyTag      = errors.New("value is empty")
	ErrTagIndex      = errors.New("tag index out of range")
	ErrNotImage      = errors.New("field does not hold an image")
	ErrMissingImages = errors.New("required images are missing")
	ErrClosed        = errors.New("form is closed")
	ErrPaste         = errors.New("pasted data is not a JSON object")
)

// Writer persists the record being edited.
type Writer[T model.Entity] interface {
	Create(ctx context.Context, fields map[string]any) (*T, error)
	Update(ctx context.Context, id string, fields map[string]any) (*T, error)
}

// Uploader stores an image and returns its public address.
type Uploader interface {
	UploadImage(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (*service.UploadResult, error)
}

// Level classifies a notice.
type Level string

const (
	Info  Level = "info"
	Error Level = "error"
)

// Notice is a transient message for the person editing.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Form is the editing state of a record of type T.
type Form[T model.Entity] struct {
	writer   Writer[T]
	uploader Uploader
	schema   model.Schema
	fields   map[string]model.Field
	logger   zerolog.Logger

	editingID string
	initial   map[string]any
	values    map[string]any
	notices   []Notice
	closed    bool
	onClose   func()
}

// Option configures a Form.
type Option func(*formOptions)

type formOptions struct {
	onClose func()
}

// OnClose registers a callback run when the form closes after a successful
// submit or a cancel.
func OnClose(f func()) Option {
	return func(o *formOptions) { o.onClose = f }
}

// New returns an empty form that creates a record on submit.
func New[T model.Entity](w Writer[T], up Uploader, logger zerolog.Logger, opts ...Option) *Form[T] {
	var o formOptions
	for _, opt := range opts {
		opt(&o)
	}
	var zero T
	schema := zero.Schema()
	return &Form[T]{
		writer:   w,
		uploader: up,
		schema:   schema,
		fields:   model.Fields[T](),
		logger:   logger.With().Str("component", "form").Str("collection", schema.Collection).Logger(),
		initial:  map[string]any{},
		values:   map[string]any{},
		onClose:  o.onClose,
	}
}

// Edit returns a form prefilled from an existing record that updates it on submit.
func Edit[T model.Entity](w Writer[T], up Uploader, logger zerolog.Logger, id string, existing T, opts ...Option) (*Form[T], error) {
	f := New[T](w, up, logger, opts...)
	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for name, field := range f.fields {
		v, ok := m[name]
		if !ok || string(v) == "null" {
			continue
		}
		typed, err := decodeAs(v, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		f.initial[name] = typed
	}
	f.editingID = id
	f.values = cloneValues(f.initial)
	return f, nil
}

// Editing reports whether submit updates an existing record.
func (f *Form[T]) Editing() bool { return f.editingID != "" }

// Closed reports whether the form has been submitted or cancelled.
func (f *Form[T]) Closed() bool { return f.closed }

// Value returns the current value of a field.
func (f *Form[T]) Value(field string) (any, bool) {
	v, ok := f.values[field]
	return v, ok
}

// Values returns a copy of every field that has a value.
func (f *Form[T]) Values() map[string]any { return cloneValues(f.values) }

// Notices returns the messages raised so far, oldest first.
func (f *Form[T]) Notices() []Notice { return slices.Clone(f.notices) }

// Set assigns a field. Type checking happens on submit.
func (f *Form[T]) Set(field string, value any) error {
	if f.closed {
		return ErrClosed
	}
	if _, ok := f.fields[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if value == nil {
		delete(f.values, field)
		return nil
	}
	f.values[field] = value
	return nil
}

// AddTag appends a trimmed value to a list field. Empty values are rejected.
func (f *Form[T]) AddTag(field, value string) error {
	list, err := f.list(field)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyTag
	}
	f.values[field] = append(list, value)
	return nil
}

// RemoveTag deletes the value at index from a list field.
func (f *Form[T]) RemoveTag(field string, index int) error {
	list, err := f.list(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return ErrTagIndex
	}
	f.values[field] = slices.Delete(list, index, index+1)
	return nil
}

func (f *Form[T]) list(field string) ([]string, error) {
	if f.closed {
		return nil, ErrClosed
	}
	def, ok := f.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !def.IsList() {
		return nil, fmt.Errorf("%w: %s", ErrNotList, field)
	}
	cur, _ := f.values[field].([]string)
	return slices.Clone(cur), nil
}

// UploadImage uploads r and stores the returned URL in field. On failure the
// field keeps its previous value and an error notice is recorded.
func (f *Form[T]) UploadImage(ctx context.Context, field, filename, contentType string, r io.Reader, size int64) error {
	if f.closed {
		return ErrClosed
	}
	if !slices.Contains(f.schema.ImageFields, field) {
		return fmt.Errorf("%w: %s", ErrNotImage, field)
	}
	res, err := f.uploader.UploadImage(ctx, r, filename, contentType, size)
	if err != nil {
		f.logger.Warn().Err(err).Str("field", field).Msg("image upload failed")
		f.notify(Error, "Image upload failed: "+userMessage(err))
		return err
	}
	f.values[field] = res.SecureURL
	f.notify(Info, "Image uploaded")
	return nil
}

// MissingImages lists required image fields without a value.
func (f *Form[T]) MissingImages() []string {
	var missing []string
	for _, name := range f.schema.RequiredImages {
		if s, _ := f.values[name].(string); strings.TrimSpace(s) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// CanSubmit reports whether the form is open and every required image is set.
func (f *Form[T]) CanSubmit() bool {
	return !f.closed && len(f.MissingImages()) == 0
}

// Paste parses text as a JSON object and applies the recognised fields.
// Every recognised value must have the field's type; otherwise nothing is
// applied. Unrecognised keys are ignored. It returns the applied field names.
func (f *Form[T]) Paste(text string) ([]string, error) {
	if f.closed {
		return nil, ErrClosed
	}
	applied, err := f.parsePaste(text)
	if err != nil {
		f.notify(Error, "Could not read pasted data: "+err.Error())
		return nil, err
	}

	names := make([]string, 0, len(applied))
	for name, v := range applied {
		f.values[name] = v
		names = append(names, name)
	}
	sort.Strings(names)
	f.notify(Info, fmt.Sprintf("Filled %d field(s) from pasted data", len(names)))
	return names, nil
}

func (f *Form[T]) parsePaste(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	var obj map[string]json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaste, err)
	}
	if obj == nil {
		return nil, ErrPaste
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after object", ErrPaste)
	}

	out := make(map[string]any, len(obj))
	for name, raw := range obj {
		def, ok := f.fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		v, err := decodeAs(raw, def.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s has the wrong type", ErrPaste, name)
		}
		out[name] = v
	}
	return out, nil
}

// Submit writes the form: an update when editing, a create otherwise.
// Failures are recorded as notices and leave the form open.
func (f *Form[T]) Submit(ctx context.Context) (*T, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if missing := f.MissingImages(); len(missing) > 0 {
		f.notify(Error, "Upload required images first: "+strings.Join(missing, ", "))
		return nil, fmt.Errorf("%w: %s", ErrMissingImages, strings.Join(missing, ", "))
	}

	var (
		saved *T
		err   error
	)
	if f.Editing() {
		saved, err = f.writer.Update(ctx, f.editingID, f.updateFields())
	} else {
		saved, err = f.writer.Create(ctx, f.Values())
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("id", f.editingID).Msg("submit failed")
		f.notify(Error, "Save failed: "+userMessage(err))
		return nil, err
	}

	if f.Editing() {
		f.notify(Info, "Changes saved")
	} else {
		f.notify(Info, "Record created")
	}
	f.close()
	return saved, nil
}

// updateFields returns the current values plus an explicit empty value for
// every prefilled field that has since been cleared. Updates merge into the
// stored record, so an omitted field would keep its old value.
func (f *Form[T]) updateFields() map[string]any {
	out := f.Values()
	for name := range f.initial {
		if _, ok := out[name]; ok {
			continue
		}
		out[name] = emptyValue(f.fields[name].Type)
	}
	return out
}

func emptyValue(t reflect.Type) any {
	switch t.Kind() {
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0).Interface()
	case reflect.Map:
		return reflect.MakeMap(t).Interface()
	}
	return reflect.Zero(t).Interface()
}

// Cancel discards every edit and closes the form without writing.
func (f *Form[T]) Cancel() {
	if f.closed {
		return
	}
	f.values = cloneValues(f.initial)
	f.close()
}

func (f *Form[T]) close() {
	f.closed = true
	if f.onClose != nil {
		f.onClose()
	}
}

func (f *Form[T]) notify(level Level, msg string) {
	f.notices = append(f.notices, Notice{Level: level, Message: msg})
}

func userMessage(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, service.ErrNotFound):
		return "record no longer exists"
	case errors.Is(err, service.ErrUnsupportedMedia), errors.Is(err, service.ErrTooLarge):
		return err.Error()
	}
	return "please try again"
}

// decodeAs decodes raw strictly into a fresh value of type t.
func decodeAs(raw json.RawMessage, t reflect.Type) (any, error) {
	ptr := reflect.New(t)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func cloneValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.([]string); ok {
			v = slices.Clone(s)
		}
		out[k] = v
	}
	return out
}
