package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

type fakeLookups struct {
	err error
}

func (f fakeLookups) Countries(context.Context) ([]model.Country, error) {
	if f.err != nil {
		return nil, f.err
	}
	name := "United States"
	return []model.Country{{ID: 2, Code: "FR"}, {ID: 1, Code: "US", Name: &name}}, nil
}

func (f fakeLookups) Names(_ context.Context, kind repository.LookupKind) ([]model.Lookup, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch kind {
	case repository.Genres:
		return []model.Lookup{{ID: 3, Name: "Crime"}, {ID: 1, Name: "Drama"}}, nil
	case repository.Actors:
		return []model.Lookup{{ID: 1, Name: "Al Pacino"}}, nil
	}
	return []model.Lookup{}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newLookupServer(store LookupStore, db Pinger) *echo.Echo {
	h := NewLookupHandler(store)
	e := echo.New()
	e.GET("/healthz", Health(db))
	e.GET("/countries", h.Countries)
	e.GET("/genres", h.Genres)
	e.GET("/actors", h.Actors)
	e.GET("/languages", h.Languages)
	return e
}

func TestLookupListings(t *testing.T) {
	e := newLookupServer(fakeLookups{}, fakePinger{})

	rec := do(e, http.MethodGet, "/countries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].(map[string]any)["name"])
	assert.Equal(t, "United States", items[1].(map[string]any)["name"])

	rec = do(e, http.MethodGet, "/genres", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)

	rec = do(e, http.MethodGet, "/languages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 0)
}

func TestLookupStoreFailure(t *testing.T) {
	e := newLookupServer(fakeLookups{err: errors.New("boom")}, fakePinger{})

	for _, path := range []string{"/countries", "/actors"} {
		rec := do(e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
}

func TestHealth(t *testing.T) {
	rec := do(newLookupServer(fakeLookups{}, fakePinger{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(newLookupServer(fakeLookups{}, fakePinger{err: errors.New("down")}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
