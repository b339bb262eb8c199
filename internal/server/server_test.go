package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialgrid/internal/cache"
	"socialgrid/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	app, db := setupTestApp(t, testConfig())

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"up"`)

	status, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, status)
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &ready))
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["store"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestReadinessCheck_WithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	t.Cleanup(func() { cache.SetClient(nil) })

	s, err := NewServerWithDeps(testConfig(), setupTestDB(t), redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	app := s.NewApp()

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestUnknownRouteKeepsStatus(t *testing.T) {
	app, _ := setupTestApp(t, testConfig())

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, decodeError(t, body).Error)
}

func TestMetricsDashboard(t *testing.T) {
	app, _ := setupTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	status, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"pid"`)
}

func TestGetFeatureFlags(t *testing.T) {
	app, _ := setupTestApp(t, testConfig())

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/feature-flags?userId=k3x9a", nil))
	require.Equal(t, http.StatusOK, status)

	var out struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "on", out.Raw["quiz"])
	assert.True(t, out.Evaluated["feed_stats_cache"])
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("bad"), fiber.StatusBadRequest},
		{models.NewQuotaExceededError(2), fiber.StatusBadRequest},
		{models.NewNotFoundError("Question", 9), fiber.StatusNotFound},
		{models.NewStoreUnavailableError("Failed to fetch posts", errors.New("down")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapServiceError(tt.err), tt.err.Error())
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePagination(c, defaultPaginationLimit)
		return nil
	})

	cases := map[string]Pagination{
		"/":                     {Limit: 20, Offset: 0},
		"/?limit=5&offset=10":   {Limit: 5, Offset: 10},
		"/?limit=500":           {Limit: 100, Offset: 0},
		"/?limit=-1&offset=-3":  {Limit: 20, Offset: 0},
		"/?limit=abc&offset=xy": {Limit: 20, Offset: 0},
	}
	for target, want := range cases {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		assert.Equal(t, want, got, target)
	}
}
