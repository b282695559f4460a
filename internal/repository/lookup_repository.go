package repository

// This file holds the lookup entities (countries, genres, actors and
// languages).  Lookups are never written on their own: they are resolved by
// natural key inside the transaction of the movie write that references
// them, and created on first use.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// lookupTable describes a lookup table, its natural key column and, for
// many-to-many lookups, the join table linking it to movies.
type lookupTable struct {
	table      string // lookup table name
	key        string // natural key column
	link       string // join table (empty for countries)
	linkColumn string // join table column referencing table.id
}

var (
	countryTable  = lookupTable{table: "countries", key: "code"}
	genreTable    = lookupTable{table: "genres", key: "name", link: "movie_genres", linkColumn: "genre_id"}
	actorTable    = lookupTable{table: "actors", key: "name", link: "movie_actors", linkColumn: "actor_id"}
	languageTable = lookupTable{table: "languages", key: "name", link: "movie_languages", linkColumn: "language_id"}

	linkTables = []lookupTable{genreTable, actorTable, languageTable}
)

func (t lookupTable) selectIDSQL() string {
	return fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", t.table, t.key)
}

// selectIDLockedSQL is a locking read: unlike a plain SELECT inside a
// REPEATABLE READ transaction it sees rows committed after the snapshot.
func (t lookupTable) selectIDLockedSQL() string {
	return t.selectIDSQL() + " LOCK IN SHARE MODE"
}

func (t lookupTable) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", t.table, t.key)
}

func (t lookupTable) deleteLinksSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE movie_id = ?", t.link)
}

func (t lookupTable) insertLinkSQL() string {
	return fmt.Sprintf("INSERT INTO %s (movie_id, %s) VALUES (?, ?)", t.link, t.linkColumn)
}

func (t lookupTable) linkedSQL() string {
	return fmt.Sprintf(`SELECT l.id, l.name FROM %s j JOIN %s l ON l.id = j.%s
	                    WHERE j.movie_id = ? ORDER BY l.name`, t.link, t.table, t.linkColumn)
}

func (t lookupTable) listSQL() string {
	return fmt.Sprintf("SELECT id, name FROM %s ORDER BY name", t.table)
}

// getOrCreate returns the id of the row whose natural key equals key,
// inserting it when missing.  When a concurrent transaction inserts the same
// key first, the unique index rejects our insert and the row it committed is
// read back instead.
func getOrCreate(ctx context.Context, q queryer, t lookupTable, key string) (uint64, error) {
	var id uint64
	err := q.QueryRowContext(ctx, t.selectIDSQL(), key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := q.ExecContext(ctx, t.insertSQL(), key)
	if err != nil {
		if !isDuplicateEntry(err) {
			return 0, classify(err)
		}
		if err := q.QueryRowContext(ctx, t.selectIDLockedSQL(), key).Scan(&id); err != nil {
			return 0, fmt.Errorf("re-read %s %q after duplicate insert: %w", t.table, key, err)
		}
		return id, nil
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// resolveCountry maps a country code to its id.  An empty code means the
// movie has no country.
func resolveCountry(ctx context.Context, q queryer, code string) (sql.NullInt64, error) {
	if code == "" {
		return sql.NullInt64{}, nil
	}
	id, err := getOrCreate(ctx, q, countryTable, code)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}, nil
}

// linkAll resolves every key and links it to the movie.  Keys resolving to
// the same row (e.g. differing only by case under a case-insensitive
// collation) are linked once.
func linkAll(ctx context.Context, q queryer, t lookupTable, movieID uint64, keys []string) error {
	linked := make(map[uint64]bool, len(keys))
	for _, key := range keys {
		id, err := getOrCreate(ctx, q, t, key)
		if err != nil {
			return err
		}
		if linked[id] {
			continue
		}
		linked[id] = true
		if _, err := q.ExecContext(ctx, t.insertLinkSQL(), movieID, id); err != nil {
			return classify(err)
		}
	}
	return nil
}

// replaceLinks drops the movie's current links in t and links keys instead.
func replaceLinks(ctx context.Context, q queryer, t lookupTable, movieID uint64, keys []string) error {
	if _, err := q.ExecContext(ctx, t.deleteLinksSQL(), movieID); err != nil {
		return err
	}
	return linkAll(ctx, q, t, movieID, keys)
}

// linkedLookups loads the rows of t linked to the movie, ordered by name.
func linkedLookups(ctx context.Context, q queryer, t lookupTable, movieID uint64) ([]model.Lookup, error) {
	rows, err := q.QueryContext(ctx, t.linkedSQL(), movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Lookup{}
	for rows.Next() {
		var l model.Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LookupKind selects one of the name-keyed lookup tables.
type LookupKind int

const (
	Genres LookupKind = iota
	Actors
	Languages
)

func (k LookupKind) table() (lookupTable, bool) {
	switch k {
	case Genres:
		return genreTable, true
	case Actors:
		return actorTable, true
	case Languages:
		return languageTable, true
	}
	return lookupTable{}, false
}

// LookupRepo exposes read-only listings of the lookup tables.
type LookupRepo struct {
	db *sql.DB
}

// NewLookupRepo constructs a LookupRepo with the provided DB handle.
func NewLookupRepo(db *sql.DB) *LookupRepo {
	return &LookupRepo{db: db}
}

const qListCountries = `SELECT id, code, name FROM countries ORDER BY code`

// Countries returns every country ordered by code.
func (r *LookupRepo) Countries(ctx context.Context) ([]model.Country, error) {
	rows, err := r.db.QueryContext(ctx, qListCountries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Country{}
	for rows.Next() {
		var (
			c    model.Country
			name sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Code, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			c.Name = &name.String
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Names returns every row of the given lookup kind ordered by name.
func (r *LookupRepo) Names(ctx context.Context, kind LookupKind) ([]model.Lookup, error) {
	t, ok := kind.table()
	if !ok {
		return nil, fmt.Errorf("unknown lookup kind %d", kind)
	}
	rows, err := r.db.QueryContext(ctx, t.listSQL())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Lookup{}
	for rows.Next() {
		var l model.Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
