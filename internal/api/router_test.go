package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/psyscore/internal/middleware"
	"github.com/soaringjerry/psyscore/internal/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]*services.Artifact
}

func (m *memStore) Save(_ context.Context, a *services.Artifact) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[a.ID] = a
	return "mem://" + a.ID, nil
}

type testServer struct {
	engine  *gin.Engine
	uploads *services.UploadService
	store   *memStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	signer := middleware.NewSigner("test-secret")
	gate, err := services.NewGateService("risultato", "", signer.SignToken, time.Hour)
	require.NoError(t, err)
	store := &memStore{saved: map[string]*services.Artifact{}}
	uploads := services.NewUploadService(store, time.Second)

	r := gin.New()
	r.Use(middleware.Locale())
	NewRouter(Deps{
		Sessions: services.NewSessionService(nil, nil, time.Hour),
		Gate:     gate,
		Uploads:  uploads,
		Signer:   signer,
		Commit:   "abc123",
	}).Register(r)
	return &testServer{engine: r, uploads: uploads, store: store}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func allAnswers(n int, value interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for i := 1; i <= n; i++ {
		out[strconv.Itoa(i)] = value
	}
	return out
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health?lang=en", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "en", body["locale"])
	assert.Equal(t, "abc123", body["commit"])
	assert.EqualValues(t, 0, body["sessions"])

	w = s.do(http.MethodGet, "/version", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "abc123")
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/catalogs", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []catalogSummary
	decode(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "dass21", list[0].ID)
	assert.Equal(t, 220, list[1].ItemCount)
	assert.Len(t, list[1].Domains, 5)

	w = s.do(http.MethodGet, "/api/catalogs/dass21", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Items   []map[string]interface{} `json:"items"`
		Options []string                 `json:"options"`
	}
	decode(t, w, &detail)
	assert.Len(t, detail.Items, 21)
	assert.Len(t, detail.Options, 4)

	w = s.do(http.MethodGet, "/api/catalogs/dass21/items.csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dass21_items.csv")
	assert.Equal(t, 22, strings.Count(w.Body.String(), "\n"))

	w = s.do(http.MethodGet, "/api/catalogs/mmpi", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScoreEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/score/pid5", map[string]interface{}{"answers": allAnswers(220, 0)}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p services.Profile
	decode(t, w, &p)
	assert.Equal(t, "Molto Basso", p.OverallSeverity)
	assert.Len(t, p.Recommendations, 1)

	w = s.do(http.MethodPost, "/api/score/dass21?format=md", map[string]interface{}{"answers": allAnswers(21, "1")}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, w.Body.String(), "| Depressione | 7 | 7/7 | Moderato |")

	w = s.do(http.MethodPost, "/api/score/pid5", map[string]interface{}{"answers": map[string]interface{}{"12": 4}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errBody map[string]interface{}
	decode(t, w, &errBody)
	assert.Contains(t, errBody["message"], "item 12")
	assert.Equal(t, "invalid", errBody["code"])

	w = s.do(http.MethodPost, "/api/score/pid5?missing=zero", map[string]interface{}{"answers": map[string]interface{}{}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/score/pid5?missing=prorate", map[string]interface{}{"answers": map[string]interface{}{}}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/sessions", map[string]string{"catalog": "dass21"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess services.Session
	decode(t, w, &sess)
	require.NotEmpty(t, sess.ID)
	base := "/api/sessions/" + sess.ID

	w = s.do(http.MethodPut, base+"/answers", map[string]interface{}{"answers": allAnswers(21, 2)}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &sess)
	assert.Equal(t, 21, sess.Answered)

	w = s.do(http.MethodPut, base+"/answers", map[string]interface{}{"answers": map[string]interface{}{"21": nil}}, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &sess)
	assert.Equal(t, 20, sess.Answered)

	w = s.do(http.MethodPut, base+"/answers", map[string]interface{}{"answers": map[string]interface{}{"99": 1}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/submit", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &sess)
	assert.True(t, sess.Submitted)
	assert.NotContains(t, w.Body.String(), "overall_severity")

	w = s.do(http.MethodGet, base+"/results", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/gate/login", map[string]string{"session_id": sess.ID, "password": "sbagliata"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/gate/login", map[string]string{"session_id": sess.ID, "password": "risultato"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login services.GateResult
	decode(t, w, &login)
	require.NotEmpty(t, login.Token)

	w = s.do(http.MethodGet, base+"/results", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var p services.Profile
	decode(t, w, &p)
	assert.True(t, p.OverallValid)
	assert.Equal(t, "Estremamente Severo", p.OverallSeverity)

	w = s.do(http.MethodGet, base+"/export?format=csv", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dass21_"+sess.ID+".csv")

	w = s.do(http.MethodGet, base+"/export?format=xlsx&formulas=1", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = s.do(http.MethodGet, base+"/export?format=pdf", nil, login.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/upload", map[string]interface{}{"format": "md"}, login.Token)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var up struct {
		Job services.UploadJob `json:"job"`
	}
	decode(t, w, &up)
	s.uploads.Wait()

	w = s.do(http.MethodGet, "/api/uploads/"+up.Job.ID, nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var job services.UploadJob
	decode(t, w, &job)
	assert.Equal(t, services.UploadDone, job.Status)
	assert.Equal(t, "dass21_"+sess.ID+".md", s.store.saved[job.ID].Filename)

	w = s.do(http.MethodGet, "/api/uploads/"+up.Job.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResultsBeforeSubmit(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/sessions", map[string]string{"catalog": "pid5"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var sess services.Session
	decode(t, w, &sess)

	w = s.do(http.MethodPost, "/api/gate/login", map[string]string{"session_id": sess.ID, "password": "risultato"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login services.GateResult
	decode(t, w, &login)

	w = s.do(http.MethodGet, "/api/sessions/"+sess.ID+"/results", nil, login.Token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/sessions/nope", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/gate/login", map[string]string{"session_id": "nope", "password": "risultato"}, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/sessions", map[string]string{}, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/sessions", map[string]string{"catalog": "mmpi"}, "").Code)
}

func TestUnconfiguredCollaborators(t *testing.T) {
	r := gin.New()
	NewRouter(Deps{Sessions: services.NewSessionService(nil, nil, time.Hour)}).Register(r)

	req := httptest.NewRequest(http.MethodPost, "/api/gate/login", strings.NewReader(`{"session_id":"x","password":"y"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
