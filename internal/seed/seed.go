// Package seed loads YAML fixtures through the validated content services.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"libportal/internal/service"
)

// Result counts the records created per collection.
type Result struct {
	Created map[string]int
}

// Total returns the number of records created.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Created {
		n += c
	}
	return n
}

// Registry resolves a collection name to its create use case.
type Registry interface {
	Creator(collection string) (service.CreateFunc, bool)
}

// LoadFile seeds from a YAML file.
func LoadFile(ctx context.Context, reg Registry, path string, logger zerolog.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Load(ctx, reg, f, logger)
}

// Load creates every document of a fixture whose top-level keys are collection
// names and whose values are lists of documents. Collections are processed in
// file order. Invalid documents are skipped and reported together.
func Load(ctx context.Context, reg Registry, r io.Reader, logger zerolog.Logger) (Result, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return Result{Created: map[string]int{}}, nil
		}
		return Result{}, fmt.Errorf("parse fixture: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return Result{}, errors.New("fixture must be a mapping of collection names to lists")
	}

	res := Result{Created: map[string]int{}}
	var errs []error
	m := root.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		collection := m.Content[i].Value
		create, ok := reg.Creator(collection)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown collection %q (line %d)", collection, m.Content[i].Line))
			continue
		}

		var docs []map[string]any
		if err := m.Content[i+1].Decode(&docs); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", collection, err))
			continue
		}

		for j, doc := range docs {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if _, err := create(ctx, doc); err != nil {
				errs = append(errs, fmt.Errorf("%s[%d]: %w", collection, j, err))
				continue
			}
			res.Created[collection]++
		}
		logger.Info().Str("collection", collection).Int("created", res.Created[collection]).Int("total", len(docs)).Msg("collection seeded")
	}
	return res, errors.Join(errs...)
}
