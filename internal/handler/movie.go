// Package handler exposes the HTTP handlers of the movie catalog.
// This file implements create, read, list, patch and delete of movies.
// Store errors are translated into status codes here and raw database
// errors are only ever logged.

package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/model"
    "github.com/iliyamo/movie-catalog/internal/pagination"
    "github.com/iliyamo/movie-catalog/internal/queue"
    "github.com/iliyamo/movie-catalog/internal/repository"
    "github.com/iliyamo/movie-catalog/internal/validation"
)

// requestTimeout bounds the store work done for a single request.
const requestTimeout = 5 * time.Second

// MovieStore is the persistence contract the movie handlers rely on.
// *repository.MovieRepo implements it.
type MovieStore interface {
    Create(ctx context.Context, in *model.MovieInput) (*model.Movie, error)
    GetByID(ctx context.Context, id uint64) (*model.Movie, error)
    Page(ctx context.Context, limit, offset int) ([]*model.Movie, int64, error)
    Update(ctx context.Context, id uint64, p *model.MoviePatch) (*model.Movie, error)
    Delete(ctx context.Context, id uint64) error
}

// EventPublisher delivers change events after a write has been committed.
type EventPublisher interface {
    PublishMovieEvent(ctx context.Context, ev queue.MovieEvent) error
}

// MovieHandler serves the movie routes.  Events may be nil, in which case no
// change events are published.
type MovieHandler struct {
    Store          MovieStore            // movie persistence
    Validator      *validation.Validator // payload rules
    Events         EventPublisher        // optional change event sink
    BasePath       string                // base of the pagination links, e.g. "/movies"
    DefaultPerPage int                   // per_page when the query omits it
    MaxPerPage     int                   // largest per_page accepted
}

// NewMovieHandler constructs a MovieHandler and panics if a required
// dependency is nil.
func NewMovieHandler(store MovieStore, v *validation.Validator, events EventPublisher, basePath string, defPerPage, maxPerPage int) *MovieHandler {
    if store == nil || v == nil {
        panic("nil dependency passed to NewMovieHandler")
    }
    return &MovieHandler{
        Store:          store,
        Validator:      v,
        Events:         events,
        BasePath:       basePath,
        DefaultPerPage: defPerPage,
        MaxPerPage:     maxPerPage,
    }
}

type countryView struct {
    ID   uint64  `json:"id"`
    Code string  `json:"code"`
    Name *string `json:"name"`
}

type lookupView struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
}

// movieDetail is the single-movie representation with every relation loaded.
type movieDetail struct {
    ID        uint64       `json:"id"`
    Name      string       `json:"name"`
    Date      model.Date   `json:"date"`
    Score     float64      `json:"score"`
    Overview  string       `json:"overview"`
    Status    model.Status `json:"status"`
    Budget    *float64     `json:"budget"`
    Revenue   *float64     `json:"revenue"`
    Country   *countryView `json:"country"`
    Genres    []lookupView `json:"genres"`
    Actors    []lookupView `json:"actors"`
    Languages []lookupView `json:"languages"`
}

// movieSummary is the list item representation.
type movieSummary struct {
    ID       uint64       `json:"id"`
    Name     string       `json:"name"`
    Date     model.Date   `json:"date"`
    Score    float64      `json:"score"`
    Overview string       `json:"overview"`
    Status   model.Status `json:"status"`
}

type movieList struct {
    Movies     []movieSummary `json:"movies"`
    PrevPage   *string        `json:"prev_page"`
    NextPage   *string        `json:"next_page"`
    TotalPages int            `json:"total_pages"`
    TotalItems int64          `json:"total_items"`
}

func toLookupViews(in []model.Lookup) []lookupView {
    out := make([]lookupView, 0, len(in))
    for _, l := range in {
        out = append(out, lookupView{ID: l.ID, Name: l.Name})
    }
    return out
}

func toDetail(m *model.Movie) movieDetail {
    d := movieDetail{
        ID:        m.ID,
        Name:      m.Name,
        Date:      m.Date,
        Score:     m.Score,
        Overview:  m.Overview,
        Status:    m.Status,
        Budget:    m.Budget,
        Revenue:   m.Revenue,
        Genres:    toLookupViews(m.Genres),
        Actors:    toLookupViews(m.Actors),
        Languages: toLookupViews(m.Languages),
    }
    if m.Country != nil {
        d.Country = &countryView{ID: m.Country.ID, Code: m.Country.Code, Name: m.Country.Name}
    }
    return d
}

func toSummary(m *model.Movie) movieSummary {
    return movieSummary{
        ID:       m.ID,
        Name:     m.Name,
        Date:     m.Date,
        Score:    m.Score,
        Overview: m.Overview,
        Status:   m.Status,
    }
}

// List handles GET <base>/?page=&per_page=.  An empty catalog or a page past
// the last one is reported as 404.
func (h *MovieHandler) List(c echo.Context) error {
    p, err := pagination.Parse(c.QueryParam("page"), c.QueryParam("per_page"), h.DefaultPerPage, h.MaxPerPage)
    if errors.Is(err, pagination.ErrPageOutOfRange) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "No movies found."})
    }
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    movies, total, err := h.Store.Page(ctx, p.Limit(), p.Offset())
    if err != nil {
        return h.storeError(c, err)
    }
    page, err := pagination.New(p, total, pagination.Link(h.BasePath))
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "No movies found."})
    }
    out := movieList{
        Movies:     make([]movieSummary, 0, len(movies)),
        PrevPage:   page.PrevPage,
        NextPage:   page.NextPage,
        TotalPages: page.TotalPages,
        TotalItems: page.TotalItems,
    }
    for _, m := range movies {
        out.Movies = append(out.Movies, toSummary(m))
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET <base>/:id.
func (h *MovieHandler) Get(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    m, err := h.Store.GetByID(ctx, id)
    if err != nil {
        return h.storeError(c, err)
    }
    return c.JSON(http.StatusOK, toDetail(m))
}

// Create handles POST <base>/.  It answers 201 with the stored movie.
func (h *MovieHandler) Create(c echo.Context) error {
    var in model.MovieInput
    if err := c.Bind(&in); err != nil {
        return bindError(c, err)
    }
    in.Normalize()
    if err := h.Validator.Create(&in); err != nil {
        return h.storeError(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    m, err := h.Store.Create(ctx, &in)
    if err != nil {
        return h.storeError(c, err)
    }
    h.publish(c, queue.ActionCreated, m)
    return c.JSON(http.StatusCreated, toDetail(m))
}

// Update handles PATCH <base>/:id.  Only the fields present in the body are
// validated and changed; the full updated movie is returned.
func (h *MovieHandler) Update(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    var p model.MoviePatch
    if err := c.Bind(&p); err != nil {
        return bindError(c, err)
    }
    p.Normalize()
    if verr := h.Validator.Patch(&p); verr != nil {
        // a missing movie wins over a bad body
        if _, err := h.Store.GetByID(ctx, id); err != nil {
            return h.storeError(c, err)
        }
        return h.storeError(c, verr)
    }

    m, err := h.Store.Update(ctx, id, &p)
    if err != nil {
        return h.storeError(c, err)
    }
    h.publish(c, queue.ActionUpdated, m)
    return c.JSON(http.StatusOK, toDetail(m))
}

// Delete handles DELETE <base>/:id and answers 204 without a body.
func (h *MovieHandler) Delete(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Store.Delete(ctx, id); err != nil {
        return h.storeError(c, err)
    }
    h.publish(c, queue.ActionDeleted, &model.Movie{ID: id})
    return c.NoContent(http.StatusNoContent)
}

// publish emits a change event for a committed write.  Failures are logged
// and never affect the response.
func (h *MovieHandler) publish(c echo.Context, action string, m *model.Movie) {
    if h.Events == nil {
        return
    }
    ev := queue.MovieEvent{
        Action:     action,
        MovieID:    m.ID,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
    if action != queue.ActionDeleted {
        ev.Name = m.Name
        ev.Date = m.Date.String()
    }
    ctx := context.WithoutCancel(c.Request().Context())
    if err := h.Events.PublishMovieEvent(ctx, ev); err != nil {
        c.Logger().Warnf("publish %s event for movie %d: %v", action, m.ID, err)
    }
}

// storeError maps validation and repository errors to responses.
func (h *MovieHandler) storeError(c echo.Context, err error) error {
    var verrs validation.Errors
    switch {
    case errors.As(err, &verrs):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input", "fields": verrs})
    case errors.Is(err, repository.ErrMovieNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "a movie with this name and date already exists"})
    case errors.Is(err, repository.ErrInvalidInput):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// bindError reports a body that could not be decoded.  A badly formatted
// date is reported against the date field.
func bindError(c echo.Context, err error) error {
    if errors.Is(err, model.ErrDateFormat) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":  "invalid input",
            "fields": validation.Errors{"date": "must use the YYYY-MM-DD format"},
        })
    }
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
}

func parseID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}
