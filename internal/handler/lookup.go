package handler

// Read-only listings of the lookup entities.  Lookups are created as a side
// effect of movie writes, so there are no write routes here.

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/model"
    "github.com/iliyamo/movie-catalog/internal/repository"
)

// LookupStore lists lookup rows.  *repository.LookupRepo implements it.
type LookupStore interface {
    Countries(ctx context.Context) ([]model.Country, error)
    Names(ctx context.Context, kind repository.LookupKind) ([]model.Lookup, error)
}

// LookupHandler serves GET /countries, /genres, /actors and /languages.
type LookupHandler struct {
    Store LookupStore
}

// NewLookupHandler constructs a LookupHandler and panics if store is nil.
func NewLookupHandler(store LookupStore) *LookupHandler {
    if store == nil {
        panic("nil store passed to NewLookupHandler")
    }
    return &LookupHandler{Store: store}
}

// Countries returns every country ordered by code.
func (h *LookupHandler) Countries(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    countries, err := h.Store.Countries(ctx)
    if err != nil {
        c.Logger().Errorf("list countries: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]countryView, 0, len(countries))
    for _, cn := range countries {
        out = append(out, countryView{ID: cn.ID, Code: cn.Code, Name: cn.Name})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Genres returns every genre ordered by name.
func (h *LookupHandler) Genres(c echo.Context) error { return h.names(c, repository.Genres) }

// Actors returns every actor ordered by name.
func (h *LookupHandler) Actors(c echo.Context) error { return h.names(c, repository.Actors) }

// Languages returns every language ordered by name.
func (h *LookupHandler) Languages(c echo.Context) error { return h.names(c, repository.Languages) }

func (h *LookupHandler) names(c echo.Context, kind repository.LookupKind) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rows, err := h.Store.Names(ctx, kind)
    if err != nil {
        c.Logger().Errorf("list lookups (kind %d): %v", kind, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": toLookupViews(rows)})
}
