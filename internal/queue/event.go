// Package queue defines message payloads exchanged over the message broker.
package queue

// MovieChangedQueue is the durable queue carrying MovieEvent messages.
const MovieChangedQueue = "movie.changed"

// Actions carried by MovieEvent.
const (
    ActionCreated = "created"
    ActionUpdated = "updated"
    ActionDeleted = "deleted"
)

// MovieEvent is published after a movie write has been committed.  It
// contains enough information for downstream consumers to log or index the
// change without querying the primary database.  Name and Date are empty
// for deletions.
type MovieEvent struct {
    Action     string `json:"action"`
    MovieID    uint64 `json:"movie_id"`
    Name       string `json:"name,omitempty"`
    Date       string `json:"date,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
