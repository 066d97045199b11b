package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"libportal/internal/auth"
)

func body(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		rid := c.Locals(RequestIDLocalKey).(string)
		assert.Equal(t, rid, RequestIDFrom(c.UserContext()))
		return c.SendString(rid)
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)
		assert.Equal(t, ridHeader, body(t, resp.Body))
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, "test-id-123", resp.Header.Get(RequestIDHeader))
		assert.Equal(t, "test-id-123", body(t, resp.Body))
	})

	for name, id := range map[string]string{
		"markup":    "abc<script>",
		"spaces":    "id with spaces",
		"oversized": strings.Repeat("a", maxRequestIDLen+1),
	} {
		t.Run("should replace unsafe request id: "+name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set(RequestIDHeader, id)

			resp, err := app.Test(req)
			require.NoError(t, err)

			got := resp.Header.Get(RequestIDHeader)
			assert.NotEqual(t, id, got)
			_, err = uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(zerolog.New(&buf)))

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "upstream")
	})

	_, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)

	var logData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
	assert.NotEmpty(t, logData["request_id"])
	assert.Equal(t, "info", logData["level"])
	assert.Equal(t, "GET", logData["method"])
	assert.Equal(t, "/test", logData["path"])
	assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
	assert.NotNil(t, logData["latency"])

	buf.Reset()
	_, err = app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
	assert.Equal(t, "error", logData["level"])
	assert.Equal(t, float64(fiber.StatusBadGateway), logData["status"])
	assert.NotContains(t, logData, "trace_id")
}

func TestLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
		c.SetUserContext(trace.ContextWithSpanContext(c.UserContext(), sc))
		return c.Next()
	})
	app.Use(Logger(zerolog.New(&buf)))
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, err = app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)

	var logData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
	assert.Equal(t, tid.String(), logData["trace_id"])
}

func TestSession(t *testing.T) {
	v := auth.NewVerifier("secret", "libportal")
	token, err := v.Issue("admin-1", "admin@example.edu", time.Hour)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(Session(v, zerolog.Nop()))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		s := SessionFrom(c)
		assert.Same(t, s, auth.FromContext(c.UserContext()))
		return c.SendString(s.State.String() + ":" + s.UserID)
	})
	app.Post("/admin", RequireSession(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"anonymous", "GET", "/whoami", "", fiber.StatusOK, "anonymous:"},
		{"authenticated", "GET", "/whoami", "Bearer " + token, fiber.StatusOK, "authenticated:admin-1"},
		{"bad token is anonymous", "GET", "/whoami", "Bearer nope", fiber.StatusOK, "anonymous:"},
		{"require rejects anonymous", "POST", "/admin", "", fiber.StatusUnauthorized, ""},
		{"require rejects bad token", "POST", "/admin", "Bearer nope", fiber.StatusUnauthorized, ""},
		{"require allows session", "POST", "/admin", "Bearer " + token, fiber.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, body(t, resp.Body))
			}
		})
	}
}

func TestSessionFrom_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(SessionFrom(c).State.String())
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "checking", body(t, resp.Body))
}
