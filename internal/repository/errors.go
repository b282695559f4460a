// Package repository defines error types that are reused across the movie
// and lookup repositories.  These sentinel values allow handlers to
// distinguish a missing movie from a duplicate or from input the database
// refused, without ever looking at raw driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrMovieNotFound is returned when no movie has the requested id.
// Handlers should translate this into an HTTP 404 response.
var ErrMovieNotFound = errors.New("movie not found")

// ErrConflict is returned when a write would duplicate an existing movie
// (same name and release date).  Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInvalidInput wraps constraint violations reported by the database
// that slipped past request validation (too long values, nulls, broken
// references).  Handlers should translate this into an HTTP 400 response.
var ErrInvalidInput = errors.New("invalid input")

// MySQL server error numbers handled by the repositories.
const (
	errDupEntry        = 1062
	errBadNull         = 1048
	errOutOfRange      = 1264
	errDataTooLong     = 1406
	errNoReferencedRow = 1452
	errCheckViolated   = 3819
)

func mysqlErrorNumber(err error) (uint16, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number, true
	}
	return 0, false
}

// isDuplicateEntry reports whether err is a unique key violation.
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	if n, ok := mysqlErrorNumber(err); ok {
		return n == errDupEntry
	}
	return strings.Contains(err.Error(), "1062")
}

// classify translates integrity errors into ErrConflict or ErrInvalidInput.
// Other errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicateEntry(err) {
		return ErrConflict
	}
	n, ok := mysqlErrorNumber(err)
	if !ok {
		return err
	}
	switch n {
	case errBadNull, errOutOfRange, errDataTooLong, errNoReferencedRow, errCheckViolated:
		var me *mysql.MySQLError
		errors.As(err, &me)
		return fmt.Errorf("%w: %s", ErrInvalidInput, me.Message)
	}
	return err
}
