package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"libportal/internal/http/middleware"
	"libportal/internal/live"
	"libportal/internal/model"
	"libportal/internal/service"
)

// Deps are the collaborators the routes need.
type Deps struct {
	// Context bounds long-lived connections. Cancel it on shutdown.
	Context  context.Context
	DB       Pinger
	Registry *service.Registry
	Upload   service.UploadService
	// Hub enables the live websocket routes when set.
	Hub      *live.Hub
	Sessions middleware.Resolver
	// Gatherer enables /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Reads are public. Writes need an authenticated session, except visitor
// submissions to collections that allow public creation.
func RegisterRoutes(app *fiber.App, d Deps) {
	h := New(d.Logger)

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", Metrics(d.Gatherer))
	}

	api := app.Group("/api", middleware.Session(d.Sessions, d.Logger))
	api.Get("/session", GetSession())
	api.Post("/upload", middleware.RequireSession(), UploadImage(h, d.Upload))

	reg := d.Registry
	registerCollection(api, h, d, reg.Libraries)
	registerCollection(api, h, d, reg.Librarians)
	registerCollection(api, h, d, reg.Staff)
	registerCollection(api, h, d, reg.Gallery)
	registerCollection(api, h, d, reg.EResources)
	registerCollection[model.News](api, h, d, reg.News)
	registerCollection(api, h, d, reg.Recommendations)

	api.Get("/librarians/slug/:slug", GetItemBy(h, reg.Librarians, "slug", "slug"))
	api.Post("/news/:id/views", RecordNewsView(h, reg.News))
	api.Post("/news/:id/likes", middleware.RequireSession(), ToggleNewsLike(h, reg.News))
}

func registerCollection[T model.Entity](api fiber.Router, h *Handler, d Deps, svc service.ContentService[T]) {
	schema := svc.Schema()
	path := "/" + schema.Collection

	api.Get(path, ListItems(h, svc))
	api.Get(path+"/:id", GetItem(h, svc))
	if schema.PublicCreate {
		api.Post(path, CreateItem(h, svc))
	} else {
		api.Post(path, middleware.RequireSession(), CreateItem(h, svc))
	}
	api.Patch(path+"/:id", middleware.RequireSession(), UpdateItem(h, svc))
	api.Delete(path+"/:id", middleware.RequireSession(), DeleteItem(h, svc))

	api.Post("/admin/paste"+path, middleware.RequireSession(), PastePreview(h, svc))
	if d.Hub != nil {
		api.Get("/live"+path, RequireUpgrade(), LiveCollection(d.Context, h, d.Hub, svc))
	}
}
