package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4care/ai4care/internal/api/handler"
)

func TestPageHandler(t *testing.T) {
	h, err := handler.NewPageHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Home(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `id="symptoms"`)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in")
}

func TestPageHandler_Static(t *testing.T) {
	h, err := handler.NewPageHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	h.Static(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), "/api/triage")
}
