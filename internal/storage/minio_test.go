package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"libportal/internal/config"
)

func TestNewMinIO_ConfigErrors(t *testing.T) {
	_, err := NewMinIO(config.MinIOConfig{}, "")
	assert.EqualError(t, err, "minio endpoint is required")

	_, err = NewMinIO(config.MinIOConfig{Endpoint: "minio:9000"}, "")
	assert.EqualError(t, err, "minio credentials are required")

	_, err = NewMinIO(config.MinIOConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"}, "")
	assert.EqualError(t, err, "minio bucket is required")
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.edu/library/abc.png", publicURL("https://cdn.example.edu", "library/abc.png"))
	assert.Equal(t, "https://cdn.example.edu/library/a%20b.png", publicURL("https://cdn.example.edu", "/library/a b.png"))
}

func TestDefaultPublicBase(t *testing.T) {
	assert.Equal(t, "http://minio:9000/images", defaultPublicBase(config.MinIOConfig{Endpoint: "minio:9000", Bucket: "images"}))
	assert.Equal(t, "https://s3.example.edu/images", defaultPublicBase(config.MinIOConfig{Endpoint: "s3.example.edu", Bucket: "images", UseSSL: true}))
}

func TestTraced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rt := traced(http.DefaultTransport)
	assert.IsType(t, &otelhttp.Transport{}, rt)

	req, err := http.NewRequest(http.MethodHead, srv.URL+"/images", nil)
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
