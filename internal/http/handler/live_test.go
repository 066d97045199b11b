package handler

import (
	"context"
	"net"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libportal/internal/auth"
	"libportal/internal/live"
	"libportal/internal/repository/memory"
	"libportal/internal/service"
)

// serveLive runs the routes on a loopback listener and returns its address.
func serveLive(t *testing.T, ctx context.Context) (string, *service.Registry) {
	t.Helper()
	hub, err := live.NewHub(zerolog.Nop(), nil)
	require.NoError(t, err)
	reg := service.NewRegistry(memory.New(), hub, zerolog.Nop())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(), DisableStartupMessage: true})
	RegisterRoutes(app, Deps{
		Context:  ctx,
		Registry: reg,
		Hub:      hub,
		Sessions: auth.NewVerifier("test-secret", "libportal"),
		Logger:   zerolog.Nop(),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(5 * time.Second) })
	return ln.Addr().String(), reg
}

func dialLive(t *testing.T, addr, collection string) *fastws.Conn {
	t.Helper()
	conn, resp, err := fastws.DefaultDialer.Dial("ws://"+addr+"/api/live/"+collection, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestLiveCollection_StreamsChanges(t *testing.T) {
	addr, reg := serveLive(t, context.Background())
	conn := dialLive(t, addr, "gallery")

	var first liveMessage[map[string]any]
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "gallery", first.Collection)
	assert.Empty(t, first.Items)

	_, err := reg.Gallery.Create(context.Background(), map[string]any{
		"title":    "Reading room",
		"imageUrl": "https://cdn.test/library/room.png",
	})
	require.NoError(t, err)

	var next liveMessage[map[string]any]
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "gallery", next.Collection)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "Reading room", next.Items[0]["title"])
	assert.Equal(t, float64(1), next.Items[0]["counter"])
	assert.NotEmpty(t, next.Items[0]["id"])
}

func TestLiveCollection_ClosesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := serveLive(t, ctx)
	conn := dialLive(t, addr, "news")

	var first liveMessage[map[string]any]
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "news", first.Collection)

	cancel()

	_, _, err := conn.ReadMessage()
	var closeErr *fastws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, fastws.CloseGoingAway, closeErr.Code)
}
