// Package repository contains data access logic separated from HTTP handlers.
// This file implements the movie CRUD operations.  Every write runs in a
// single transaction together with the lookup resolution it needs, so a
// client never observes a movie with only part of its links written.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-catalog/internal/model"
)

const (
	qMovieByID = `SELECT m.id, m.name, m.release_date, m.score, m.overview, m.status, m.budget, m.revenue,
	                     c.id, c.code, c.name
	              FROM movies m LEFT JOIN countries c ON c.id = m.country_id
	              WHERE m.id = ?`
	qMovieForUpdate = `SELECT id, name, release_date, score, overview, status, budget, revenue, country_id
	                   FROM movies WHERE id = ? FOR UPDATE`
	qMovieIDForUpdate = `SELECT id FROM movies WHERE id = ? FOR UPDATE`
	qDuplicateMovie   = `SELECT COUNT(*) FROM movies WHERE name = ? AND release_date = ? AND id <> ?`
	qInsertMovie      = `INSERT INTO movies (name, release_date, score, overview, status, budget, revenue, country_id)
	                     VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	qUpdateMovie = `UPDATE movies
	                SET name = ?, release_date = ?, score = ?, overview = ?, status = ?, budget = ?, revenue = ?,
	                    country_id = ?, updated_at = CURRENT_TIMESTAMP
	                WHERE id = ?`
	qDeleteMovie = `DELETE FROM movies WHERE id = ?`
	qCountMovies = `SELECT COUNT(*) FROM movies`
	qPageMovies  = `SELECT id, name, release_date, score, overview, status
	                FROM movies ORDER BY id DESC LIMIT ? OFFSET ?`
)

// MovieRepo encapsulates all database queries related to movies.  It
// depends on a sql.DB connection which should be configured elsewhere.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// Create inserts a movie, resolving (or creating) its country, genres,
// actors and languages in the same transaction.  It returns ErrConflict when
// a movie with the same name and release date exists.  On success the fully
// loaded movie, read inside the transaction, is returned.
func (r *MovieRepo) Create(ctx context.Context, in *model.MovieInput) (*model.Movie, error) {
	var out *model.Movie
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := ensureUnique(ctx, tx, in.Name, *in.Date, 0); err != nil {
			return err
		}
		countryID, err := resolveCountry(ctx, tx, in.Country)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, qInsertMovie,
			in.Name, *in.Date, *in.Score, in.Overview, string(in.Status),
			nullFloat(in.Budget), nullFloat(in.Revenue), countryID)
		if err != nil {
			return classify(err)
		}
		n, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id := uint64(n)
		for i, keys := range [][]string{in.Genres, in.Actors, in.Languages} {
			if err := linkAll(ctx, tx, linkTables[i], id, keys); err != nil {
				return err
			}
		}
		out, err = loadMovie(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a movie with its country and lookup lists.  It returns
// ErrMovieNotFound if no row is found.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return loadMovie(ctx, r.db, id)
}

// loadMovie reads the detail representation through q, so writers can return
// what they wrote before committing.
func loadMovie(ctx context.Context, q queryer, id uint64) (*model.Movie, error) {
	m, err := scanMovie(q.QueryRowContext(ctx, qMovieByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	for i, dst := range []*[]model.Lookup{&m.Genres, &m.Actors, &m.Languages} {
		if *dst, err = linkedLookups(ctx, q, linkTables[i], m.ID); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Page returns one page of movies, newest id first, together with the total
// number of movies.  Items carry scalar fields only.  The count and the page
// are read from one snapshot.  A negative offset or one past the end yields
// no items.
func (r *MovieRepo) Page(ctx context.Context, limit, offset int) ([]*model.Movie, int64, error) {
	var total int64
	out := make([]*model.Movie, 0, limit)
	err := withReadTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, qCountMovies).Scan(&total); err != nil {
			return err
		}
		if total == 0 || offset < 0 || int64(offset) >= total {
			return nil
		}

		rows, err := tx.QueryContext(ctx, qPageMovies, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				m      model.Movie
				status string
			)
			if err := rows.Scan(&m.ID, &m.Name, &m.Date, &m.Score, &m.Overview, &status); err != nil {
				return err
			}
			m.Status = model.Status(status)
			out = append(out, &m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update applies a sparse patch.  Only the fields present in p change; lists
// that are present replace the current links.  It returns ErrMovieNotFound
// when the movie does not exist and ErrConflict when the new name and date
// collide with another movie.
func (r *MovieRepo) Update(ctx context.Context, id uint64, p *model.MoviePatch) (*model.Movie, error) {
	var out *model.Movie
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, countryID, err := lockMovie(ctx, tx, id)
		if err != nil {
			return err
		}
		before := *cur
		p.Apply(cur)
		if cur.Name != before.Name || !cur.Date.Equal(before.Date) {
			if err := ensureUnique(ctx, tx, cur.Name, cur.Date, id); err != nil {
				return err
			}
		}
		if p.Country != nil {
			if countryID, err = resolveCountry(ctx, tx, *p.Country); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, qUpdateMovie,
			cur.Name, cur.Date, cur.Score, cur.Overview, string(cur.Status),
			nullFloat(cur.Budget), nullFloat(cur.Revenue), countryID, id); err != nil {
			return classify(err)
		}
		for i, keys := range []*[]string{p.Genres, p.Actors, p.Languages} {
			if keys == nil {
				continue
			}
			if err := replaceLinks(ctx, tx, linkTables[i], id, *keys); err != nil {
				return err
			}
		}
		out, err = loadMovie(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a movie and its link rows.  Lookup rows are kept.  It
// returns ErrMovieNotFound when the movie does not exist.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found uint64
		if err := tx.QueryRowContext(ctx, qMovieIDForUpdate, id).Scan(&found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMovieNotFound
			}
			return err
		}
		for _, t := range linkTables {
			if _, err := tx.ExecContext(ctx, t.deleteLinksSQL(), id); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, qDeleteMovie, id)
		return err
	})
}

// ensureUnique returns ErrConflict when a movie other than exceptID already
// uses name and date.  The unique index on (name, release_date) still
// decides races between concurrent writers.
func ensureUnique(ctx context.Context, q queryer, name string, date model.Date, exceptID uint64) error {
	var n int
	if err := q.QueryRowContext(ctx, qDuplicateMovie, name, date, exceptID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return nil
}

// lockMovie loads the scalar columns of a movie with a row lock held until
// the transaction ends.
func lockMovie(ctx context.Context, q queryer, id uint64) (*model.Movie, sql.NullInt64, error) {
	var (
		m         model.Movie
		status    string
		budget    sql.NullFloat64
		revenue   sql.NullFloat64
		countryID sql.NullInt64
	)
	err := q.QueryRowContext(ctx, qMovieForUpdate, id).
		Scan(&m.ID, &m.Name, &m.Date, &m.Score, &m.Overview, &status, &budget, &revenue, &countryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.NullInt64{}, ErrMovieNotFound
		}
		return nil, sql.NullInt64{}, err
	}
	m.Status = model.Status(status)
	m.Budget = floatPtr(budget)
	m.Revenue = floatPtr(revenue)
	return &m, countryID, nil
}

func scanMovie(row *sql.Row) (*model.Movie, error) {
	var (
		m           model.Movie
		status      string
		budget      sql.NullFloat64
		revenue     sql.NullFloat64
		countryID   sql.NullInt64
		countryCode sql.NullString
		countryName sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Date, &m.Score, &m.Overview, &status, &budget, &revenue,
		&countryID, &countryCode, &countryName); err != nil {
		return nil, err
	}
	m.Status = model.Status(status)
	m.Budget = floatPtr(budget)
	m.Revenue = floatPtr(revenue)
	if countryID.Valid {
		c := &model.Country{ID: uint64(countryID.Int64), Code: countryCode.String}
		if countryName.Valid {
			c.Name = &countryName.String
		}
		m.Country = c
	}
	return &m, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
