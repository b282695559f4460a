package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse("", "", DefaultPerPage, MaxPerPage)
	require.NoError(t, err)
	assert.Equal(t, Params{Page: 1, PerPage: 10}, p)
	assert.Equal(t, 0, p.Offset())
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		perPage string
		wantErr bool
	}{
		{"first page", "1", "1", false},
		{"max per page", "3", "20", false},
		{"zero page", "0", "10", true},
		{"negative page", "-2", "10", true},
		{"per page too large", "1", "21", true},
		{"per page zero", "1", "0", true},
		{"not a number", "two", "10", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.page, tt.perPage, DefaultPerPage, MaxPerPage)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 20, Params{Page: 3, PerPage: 10}.Offset())
	assert.Equal(t, 5, Params{Page: 2, PerPage: 5}.Offset())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 3, TotalPages(25, 10))
}

func TestNewFirstPageOfThree(t *testing.T) {
	p, err := New(Params{Page: 1, PerPage: 10}, 25, Link("/movies"))
	require.NoError(t, err)
	assert.Equal(t, int64(25), p.TotalItems)
	assert.Equal(t, 3, p.TotalPages)
	assert.Nil(t, p.PrevPage)
	require.NotNil(t, p.NextPage)
	assert.Equal(t, "/movies/?page=2&per_page=10", *p.NextPage)
}

func TestNewLastPage(t *testing.T) {
	p, err := New(Params{Page: 3, PerPage: 10}, 25, Link("/movies/"))
	require.NoError(t, err)
	require.NotNil(t, p.PrevPage)
	assert.Equal(t, "/movies/?page=2&per_page=10", *p.PrevPage)
	assert.Nil(t, p.NextPage)
}

func TestNewOutOfRange(t *testing.T) {
	_, err := New(Params{Page: 4, PerPage: 10}, 25, Link("/movies"))
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = New(Params{Page: 1, PerPage: 10}, 0, Link("/movies"))
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestParseHugePageIsOutOfRange(t *testing.T) {
	_, err := Parse("4611686018427387905", "3", DefaultPerPage, MaxPerPage)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = Parse("99999999999999999999999", "10", DefaultPerPage, MaxPerPage)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = Parse("-99999999999999999999999", "10", DefaultPerPage, MaxPerPage)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPageOutOfRange)

	p, err := Parse("1000000", "20", DefaultPerPage, MaxPerPage)
	require.NoError(t, err)
	assert.Equal(t, 19999980, p.Offset())
}
