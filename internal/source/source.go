package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Document is fetched markup plus the time it was retrieved.
type Document struct {
	ID        string
	Body      []byte
	FetchedAt time.Time
}

// Source retrieves documents by identifier.
type Source interface {
	Fetch(ctx context.Context, id string) (*Document, error)
}

// UnavailableError reports a document that could not be retrieved.
type UnavailableError struct {
	ID         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("document %s unavailable: status %d", e.ID, e.StatusCode)
	}
	return fmt.Sprintf("document %s unavailable: %v", e.ID, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is an *UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Map serves documents from memory.
type Map map[string]string

// Fetch implements Source.
func (m Map) Fetch(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{ID: id, Err: err}
	}
	body, ok := m[id]
	if !ok {
		return nil, &UnavailableError{ID: id, Err: fmt.Errorf("not found")}
	}
	return &Document{ID: id, Body: []byte(body), FetchedAt: time.Now().UTC()}, nil
}
