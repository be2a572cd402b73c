package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/middleware"
	"github.com/soaringjerry/psyscore/internal/render"
	"github.com/soaringjerry/psyscore/internal/services"
	"github.com/soaringjerry/psyscore/internal/utils"
)

// Deps are the collaborators the HTTP layer needs. Gate and Uploads may be
// nil, in which case their routes answer 503.
type Deps struct {
	Catalogs  services.CatalogSource
	ListIDs   func() ([]string, error)
	Sessions  *services.SessionService
	Gate      *services.GateService
	Uploads   *services.UploadService
	Signer    *middleware.Signer
	Commit    string
	BuildTime string
}

type Router struct {
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if deps.Catalogs == nil {
		deps.Catalogs = catalog.Builtin
	}
	if deps.ListIDs == nil {
		deps.ListIDs = catalog.List
	}
	return &Router{deps: deps}
}

// Register mounts every route on r. Results, exports and uploads require
// a gate token issued for the session in the path.
func (rt *Router) Register(r gin.IRouter) {
	r.GET("/health", rt.handleHealth)
	r.GET("/version", rt.handleVersion)

	api := r.Group("/api")
	api.GET("/catalogs", rt.handleListCatalogs)
	api.GET("/catalogs/:id", rt.handleGetCatalog)
	api.GET("/catalogs/:id/items.csv", rt.handleItemsCSV)
	api.POST("/score/:catalog", rt.handleScore)

	api.POST("/sessions", rt.handleCreateSession)
	api.GET("/sessions/:id", rt.handleGetSession)
	api.PUT("/sessions/:id/answers", rt.handleSetAnswers)
	api.POST("/sessions/:id/submit", rt.handleSubmit)
	api.POST("/gate/login", rt.handleLogin)

	gated := api.Group("/sessions/:id")
	if rt.deps.Signer != nil {
		gated.Use(rt.deps.Signer.WithAuth())
	}
	gated.Use(middleware.RequireSession("id"))
	gated.GET("/results", rt.handleResults)
	gated.GET("/export", rt.handleExport)
	gated.POST("/upload", rt.handleUpload)

	uploads := api.Group("/uploads")
	if rt.deps.Signer != nil {
		uploads.Use(rt.deps.Signer.WithAuth())
	}
	uploads.GET("/:id", rt.handleGetUpload)
}

func (rt *Router) handleHealth(c *gin.Context) {
	locale := middleware.LocaleFrom(c)
	body := gin.H{
		"ok":         true,
		"name":       "psyscore",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     rt.deps.Commit,
		"build_time": rt.deps.BuildTime,
	}
	if rt.deps.Sessions != nil {
		body["sessions"] = len(rt.deps.Sessions.IDs())
	}
	c.JSON(http.StatusOK, body)
}

func (rt *Router) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commit": rt.deps.Commit, "build_time": rt.deps.BuildTime})
}

func (rt *Router) lookup(id string) (*catalog.Catalog, error) {
	cat, err := rt.deps.Catalogs(id)
	if err != nil || cat == nil {
		return nil, services.NewNotFoundError(fmt.Sprintf("catalog %q not found", id))
	}
	return cat, nil
}

func summarize(cat *catalog.Catalog) catalogSummary {
	return catalogSummary{
		ID:              cat.ID(),
		Title:           cat.Title(),
		Description:     cat.Description(),
		DurationMinutes: cat.DurationMinutes(),
		ItemCount:       cat.ItemCount(),
		Facets:          cat.FacetNames(),
		Domains:         cat.DomainNames(),
	}
}

func (rt *Router) handleListCatalogs(c *gin.Context) {
	ids, err := rt.deps.ListIDs()
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]catalogSummary, 0, len(ids))
	for _, id := range ids {
		cat, err := rt.lookup(id)
		if err != nil {
			writeError(c, err)
			return
		}
		out = append(out, summarize(cat))
	}
	c.JSON(http.StatusOK, out)
}

func (rt *Router) handleGetCatalog(c *gin.Context) {
	cat, err := rt.lookup(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"catalog":   summarize(cat),
		"options":   cat.Options(),
		"max_value": cat.MaxValue(),
		"items":     cat.Items(),
		"facets":    cat.Facets(),
		"domains":   cat.Domains(),
	})
}

func (rt *Router) handleItemsCSV(c *gin.Context) {
	cat, err := rt.lookup(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := services.ExportItemsCSV(cat)
	if err != nil {
		writeError(c, err)
		return
	}
	sendFile(c, &render.Result{Filename: cat.ID() + "_items.csv", ContentType: "text/csv; charset=utf-8", Data: data})
}

// POST /api/score/:catalog scores a complete answer set without a session.
// ?missing=prorate switches the facet divisor; ?format= picks an export.
func (rt *Router) handleScore(c *gin.Context) {
	cat, err := rt.lookup(c.Param("catalog"))
	if err != nil {
		writeError(c, err)
		return
	}
	if policy := c.Query("missing"); policy != "" {
		if cat, err = cat.WithMissingPolicy(catalog.MissingPolicy(policy)); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	var body answersPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	answers, err := body.decode()
	if err != nil {
		writeError(c, err)
		return
	}
	profile, err := services.ScoreQuestionnaire(cat, answers)
	if err != nil {
		writeError(c, err)
		return
	}
	if format := c.Query("format"); format != "" && format != render.FormatJSON {
		res, err := render.Export(cat, profile, answers, render.Params{Format: format, Formulas: queryBool(c, "formulas"), Styles: render.PlainStyles()})
		if err != nil {
			writeError(c, err)
			return
		}
		sendFile(c, res)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (rt *Router) handleCreateSession(c *gin.Context) {
	var body createSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := rt.deps.Sessions.Create(body.Catalog)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (rt *Router) handleGetSession(c *gin.Context) {
	sess, err := rt.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (rt *Router) handleSetAnswers(c *gin.Context) {
	var body answersPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	answers, err := body.decode()
	if err != nil {
		writeError(c, err)
		return
	}
	sess, err := rt.deps.Sessions.SetAnswers(c.Param("id"), answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Submitting scores the session but does not return the profile; reading it
// goes through the gate.
func (rt *Router) handleSubmit(c *gin.Context) {
	id := c.Param("id")
	if _, err := rt.deps.Sessions.Submit(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	sess, err := rt.deps.Sessions.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (rt *Router) handleLogin(c *gin.Context) {
	if rt.deps.Gate == nil {
		writeError(c, services.NewUnavailableError("results gate not configured"))
		return
	}
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := rt.deps.Sessions.Get(body.SessionID); err != nil {
		writeError(c, err)
		return
	}
	res, err := rt.deps.Gate.Login(body.SessionID, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (rt *Router) submittedProfile(c *gin.Context) (*catalog.Catalog, *services.Session, *services.Profile, bool) {
	id := c.Param("id")
	sess, err := rt.deps.Sessions.Get(id)
	if err != nil {
		writeError(c, err)
		return nil, nil, nil, false
	}
	profile, err := rt.deps.Sessions.Result(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, nil, nil, false
	}
	cat, err := rt.lookup(sess.Catalog)
	if err != nil {
		writeError(c, err)
		return nil, nil, nil, false
	}
	return cat, sess, profile, true
}

func (rt *Router) handleResults(c *gin.Context) {
	_, _, profile, ok := rt.submittedProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (rt *Router) handleExport(c *gin.Context) {
	cat, sess, profile, ok := rt.submittedProfile(c)
	if !ok {
		return
	}
	res, err := render.Export(cat, profile, sess.Answers, render.Params{
		Format:       c.DefaultQuery("format", render.FormatJSON),
		RespondentID: sess.ID,
		Formulas:     queryBool(c, "formulas"),
		Styles:       render.PlainStyles(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	sendFile(c, res)
}

func (rt *Router) handleUpload(c *gin.Context) {
	if rt.deps.Uploads == nil {
		writeError(c, services.NewUnavailableError("remote storage not configured"))
		return
	}
	var body uploadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	cat, sess, profile, ok := rt.submittedProfile(c)
	if !ok {
		return
	}
	if body.Format == "" {
		body.Format = render.FormatXLSX
	}
	res, err := render.Export(cat, profile, sess.Answers, render.Params{
		Format:       body.Format,
		RespondentID: sess.ID,
		Formulas:     body.Formulas,
		Styles:       render.PlainStyles(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	job, err := rt.deps.Uploads.Start(sess.ID, res.Filename, res.ContentType, res.Data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job":     job,
		"message": utils.T(middleware.LocaleFrom(c), "upload.started"),
	})
}

// Upload jobs are visible to holders of a token for the job's session.
func (rt *Router) handleGetUpload(c *gin.Context) {
	if rt.deps.Uploads == nil {
		writeError(c, services.NewUnavailableError("remote storage not configured"))
		return
	}
	job, err := rt.deps.Uploads.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.SessionID != job.SessionID {
		writeError(c, services.NewUnauthorizedError("token not valid for this upload"))
		return
	}
	c.JSON(http.StatusOK, job)
}

func sendFile(c *gin.Context, res *render.Result) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
