package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontendHandlerStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>psyscore</h1>"), 0o644))

	h := frontendHandler(dir, "http://ignored.local")
	require.NotNil(t, h)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "psyscore")
}

func TestFrontendHandlerProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write([]byte("vite:" + r.URL.Path))
	}))
	defer upstream.Close()

	h := frontendHandler("", upstream.URL)
	require.NotNil(t, h)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questionario", nil))
	assert.Equal(t, "vite:/questionario", w.Body.String())
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestFrontendHandlerDisabled(t *testing.T) {
	assert.Nil(t, frontendHandler("", ""))
	assert.Nil(t, frontendHandler("", "::not a url"))
}
