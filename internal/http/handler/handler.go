// Package handler contains the HTTP handlers and route table.
package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"libportal/internal/http/middleware"
	"libportal/internal/model"
	"libportal/internal/service"
)

// Handler carries what every handler shares.
type Handler struct {
	logger zerolog.Logger
}

// New creates a Handler.
func New(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger.With().Str("component", "handler").Logger()}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck reports whether the database is reachable.
//
// @Summary  Health check
// @Tags     health
// @Success  200 {object} map[string]string
// @Failure  503 {object} errorPayload
// @Router   /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes the registry in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// GetSession reports the caller's session state.
//
// @Summary  Current session
// @Tags     session
// @Success  200 {object} auth.Session
// @Router   /api/session [get]
func GetSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(middleware.SessionFrom(c))
	}
}

// listResult is the list response body.
type listResult[T any] struct {
	Items []T `json:"data"`
	Total int `json:"total"`
}

// reserved query keys; all other keys are equality filters.
const (
	queryOrderBy = "orderBy"
	queryDesc    = "desc"
	queryLimit   = "limit"
)

func listOptions(c *fiber.Ctx) (service.ListOptions, error) {
	opts := service.ListOptions{OrderBy: c.Query(queryOrderBy)}
	if v := c.Query(queryDesc); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return opts, service.NewFieldError(queryDesc, "desc must be true or false")
		}
		opts.Desc = desc
	}
	if v := c.Query(queryLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return opts, service.NewFieldError(queryLimit, "limit must be a non-negative integer")
		}
		opts.Limit = limit
	}
	for k, v := range c.Queries() {
		switch k {
		case queryOrderBy, queryDesc, queryLimit:
			continue
		}
		if opts.Filters == nil {
			opts.Filters = map[string]string{}
		}
		opts.Filters[k] = v
	}
	return opts, nil
}

// ListItems returns the ordered collection.
func ListItems[T model.Entity](h *Handler, svc service.ContentService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts, err := listOptions(c)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		items, err := svc.List(c.UserContext(), opts)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.JSON(listResult[T]{Items: items, Total: len(items)})
	}
}

func validID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// GetItem returns one record by ID.
func GetItem[T model.Entity](h *Handler, svc service.ContentService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		v, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.JSON(v)
	}
}

// GetItemBy returns the first record whose field equals the route parameter.
func GetItemBy[T model.Entity](h *Handler, svc service.ContentService[T], field, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.GetBy(c.UserContext(), field, c.Params(param))
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.JSON(v)
	}
}

func bodyFields(c *fiber.Ctx) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal(c.Body(), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// CreateItem validates the JSON body and inserts it.
func CreateItem[T model.Entity](h *Handler, svc service.ContentService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields, ok := bodyFields(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be a JSON object")
		}
		v, err := svc.Create(c.UserContext(), fields)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// UpdateItem merges the JSON body into an existing record.
func UpdateItem[T model.Entity](h *Handler, svc service.ContentService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fields, ok := bodyFields(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be a JSON object")
		}
		v, err := svc.Update(c.UserContext(), id, fields)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.JSON(v)
	}
}

// DeleteItem removes a record; unknown IDs are 404.
func DeleteItem[T model.Entity](h *Handler, svc service.ContentService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return h.writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RecordNewsView increments the view counter of a news item.
//
// @Summary  Record a news view
// @Tags     news
// @Param    id path string true "News ID"
// @Success  200 {object} model.News
// @Failure  404 {object} errorPayload
// @Router   /api/news/{id}/views [post]
func RecordNewsView(h *Handler, svc service.NewsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		n, err := svc.RecordView(c.UserContext(), id)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.JSON(n)
	}
}

// ToggleNewsLike adds or removes the caller's like.
//
// @Summary  Toggle a like
// @Tags     news
// @Security BearerAuth
// @Param    id path string true "News ID"
// @Success  200 {object} model.News
// @Failure  401 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/news/{id}/likes [post]
func ToggleNewsLike(h *Handler, svc service.NewsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		n, err := svc.ToggleLike(c.UserContext(), id, middleware.SessionFrom(c).UserID)
		if err != nil {
			return h.writeServiceError(c, err)
		}
		return c.JSON(n)
	}
}

func contentTypeOrDefault(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
