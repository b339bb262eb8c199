package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"socialgrid/internal/models"
	"socialgrid/internal/quiz"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestQuizHandlers(t *testing.T) {
	app, _ := setupTestApp(t, testConfig())

	t.Run("FirstPage", func(t *testing.T) {
		status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/quiz", nil))
		require.Equal(t, http.StatusOK, status)

		var page quiz.Page
		require.NoError(t, json.Unmarshal(body, &page))
		assert.Equal(t, 1, page.Page)
		assert.Len(t, page.Questions, quiz.DefaultPerPage)
		assert.NotContains(t, string(body), "correctAnswer")
	})

	t.Run("PerPage", func(t *testing.T) {
		status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/quiz?page=2&perPage=5", nil))
		require.Equal(t, http.StatusOK, status)

		var page quiz.Page
		require.NoError(t, json.Unmarshal(body, &page))
		assert.Equal(t, 2, page.Page)
		require.Len(t, page.Questions, 5)
		assert.Equal(t, 6, page.Questions[0].ID)
	})

	t.Run("InvalidPage", func(t *testing.T) {
		status, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/quiz?page=0", nil))
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("CorrectAnswer", func(t *testing.T) {
		status, body := doRequest(t, app, answerRequest("/api/quiz/1/answer", `{"answer":0}`))
		require.Equal(t, http.StatusOK, status)

		var res quiz.Result
		require.NoError(t, json.Unmarshal(body, &res))
		assert.True(t, res.Correct)
		assert.Equal(t, 0, res.CorrectAnswer)
		assert.NotEmpty(t, res.Explanation)
	})

	t.Run("WrongAnswer", func(t *testing.T) {
		status, body := doRequest(t, app, answerRequest("/api/quiz/2/answer", `{"answer":0}`))
		require.Equal(t, http.StatusOK, status)

		var res quiz.Result
		require.NoError(t, json.Unmarshal(body, &res))
		assert.False(t, res.Correct)
		assert.Equal(t, 1, res.CorrectAnswer)
	})

	t.Run("UnknownQuestion", func(t *testing.T) {
		status, body := doRequest(t, app, answerRequest("/api/quiz/999/answer", `{"answer":0}`))
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, models.CodeNotFound, decodeError(t, body).Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		status, body := doRequest(t, app, answerRequest("/api/quiz/abc/answer", `{"answer":0}`))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid question ID", decodeError(t, body).Error)
	})

	t.Run("MissingAnswer", func(t *testing.T) {
		status, body := doRequest(t, app, answerRequest("/api/quiz/1/answer", `{}`))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "answer is required", decodeError(t, body).Error)
	})
}

func TestQuizHandlers_FlagOff(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "quiz=off"
	app, _ := setupTestApp(t, cfg)

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/quiz", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Quiz is not available", decodeError(t, body).Error)
}

func TestQuizHandlers_OnByDefault(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "feed_stats_cache=off"
	app, _ := setupTestApp(t, cfg)

	status, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/quiz", nil))
	assert.Equal(t, http.StatusOK, status)
}
