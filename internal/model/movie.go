package model

import "strings"

// Status is the release state of a movie.
type Status string

const (
    StatusReleased  Status = "RELEASED"
    StatusPlanned   Status = "PLANNED"
    StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
    switch s {
    case StatusReleased, StatusPlanned, StatusCancelled:
        return true
    }
    return false
}

// Movie represents a row in the `movies` table together with its resolved
// lookup entities.  Country is nil when the movie has no country.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – title, unique together with Date.
//  Date      – release date.
//  Score     – rating between 0 and 100.
//  Overview  – free text synopsis.
//  Status    – RELEASED, PLANNED or CANCELLED.
//  Budget    – production budget (nil if unknown).
//  Revenue   – box office revenue (nil if unknown).
//  Country   – many-to-one country reference.
//  Genres, Actors, Languages – many-to-many references via join tables.
type Movie struct {
    ID        uint64   // movies.id
    Name      string   // movies.name
    Date      Date     // movies.release_date
    Score     float64  // movies.score
    Overview  string   // movies.overview
    Status    Status   // movies.status
    Budget    *float64 // movies.budget (nullable)
    Revenue   *float64 // movies.revenue (nullable)
    Country   *Country // movies.country_id (nullable)
    Genres    []Lookup // movie_genres
    Actors    []Lookup // movie_actors
    Languages []Lookup // movie_languages
}

// Country is a row in `countries`.  Code is the natural key.
type Country struct {
    ID   uint64  // countries.id
    Code string  // countries.code
    Name *string // countries.name (nullable)
}

// Lookup is a row in one of the name-keyed lookup tables
// (`genres`, `actors`, `languages`).
type Lookup struct {
    ID   uint64
    Name string
}

// MovieInput is the create payload.  Related entities are referenced by
// natural key and resolved (or created) by the repository.
type MovieInput struct {
    Name      string   `json:"name" validate:"required,max=255"`
    Date      *Date    `json:"date" validate:"required"`
    Score     *float64 `json:"score" validate:"required,gte=0,lte=100"`
    Overview  string   `json:"overview"`
    Status    Status   `json:"status" validate:"required,oneof=RELEASED PLANNED CANCELLED"`
    Budget    *float64 `json:"budget" validate:"omitnil,gte=0"`
    Revenue   *float64 `json:"revenue" validate:"omitnil,gte=0"`
    Country   string   `json:"country" validate:"max=16"`
    Genres    []string `json:"genres" validate:"dive,required,max=255"`
    Actors    []string `json:"actors" validate:"dive,required,max=255"`
    Languages []string `json:"languages" validate:"dive,required,max=255"`
}

// Normalize trims text fields and collapses repeated list entries.  Status is
// left as sent: only the exact upper-case values are valid.
func (in *MovieInput) Normalize() {
    in.Name = strings.TrimSpace(in.Name)
    in.Overview = strings.TrimSpace(in.Overview)
    in.Country = strings.TrimSpace(in.Country)
    in.Genres = normalizeKeys(in.Genres)
    in.Actors = normalizeKeys(in.Actors)
    in.Languages = normalizeKeys(in.Languages)
}

// MoviePatch is the sparse update payload.  A nil field was not provided and
// leaves the stored value untouched.  A provided list replaces the current
// links (an empty list clears them) and a provided empty Country clears the
// country.
type MoviePatch struct {
    Name      *string   `json:"name" validate:"omitnil,min=1,max=255"`
    Date      *Date     `json:"date"`
    Score     *float64  `json:"score" validate:"omitnil,gte=0,lte=100"`
    Overview  *string   `json:"overview"`
    Status    *Status   `json:"status" validate:"omitnil,oneof=RELEASED PLANNED CANCELLED"`
    Budget    *float64  `json:"budget" validate:"omitnil,gte=0"`
    Revenue   *float64  `json:"revenue" validate:"omitnil,gte=0"`
    Country   *string   `json:"country" validate:"omitnil,max=16"`
    Genres    *[]string `json:"genres" validate:"omitnil,dive,required,max=255"`
    Actors    *[]string `json:"actors" validate:"omitnil,dive,required,max=255"`
    Languages *[]string `json:"languages" validate:"omitnil,dive,required,max=255"`
}

// Normalize trims the provided fields the same way MovieInput does.
func (p *MoviePatch) Normalize() {
    if p.Name != nil {
        s := strings.TrimSpace(*p.Name)
        p.Name = &s
    }
    if p.Overview != nil {
        s := strings.TrimSpace(*p.Overview)
        p.Overview = &s
    }
    if p.Country != nil {
        s := strings.TrimSpace(*p.Country)
        p.Country = &s
    }
    for _, list := range []*[]string{p.Genres, p.Actors, p.Languages} {
        if list != nil {
            *list = normalizeKeys(*list)
        }
    }
}

// Apply copies the provided scalar fields onto m.  Country and the lookup
// lists need resolving against the store and are left to the repository.
func (p *MoviePatch) Apply(m *Movie) {
    if p.Name != nil {
        m.Name = *p.Name
    }
    if p.Date != nil {
        m.Date = *p.Date
    }
    if p.Score != nil {
        m.Score = *p.Score
    }
    if p.Overview != nil {
        m.Overview = *p.Overview
    }
    if p.Status != nil {
        m.Status = *p.Status
    }
    if p.Budget != nil {
        v := *p.Budget
        m.Budget = &v
    }
    if p.Revenue != nil {
        v := *p.Revenue
        m.Revenue = &v
    }
}

// normalizeKeys trims every key and drops repeats, keeping first occurrences.
// Empty keys are kept so validation can report them.
func normalizeKeys(keys []string) []string {
    if keys == nil {
        return nil
    }
    out := make([]string, 0, len(keys))
    seen := make(map[string]bool, len(keys))
    for _, k := range keys {
        k = strings.TrimSpace(k)
        if k != "" && seen[k] {
            continue
        }
        seen[k] = true
        out = append(out, k)
    }
    return out
}
