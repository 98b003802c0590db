// Package store persists schematic documents by name.
package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// Info describes a stored document.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is a stored document with its text.
type Document struct {
	Info
	Text string `json:"text"`
}

// Store defines operations for persisting documents. Saving under an
// existing name replaces the text and keeps the id.
type Store interface {
	Save(ctx context.Context, name, text string) (*Info, error)
	Load(ctx context.Context, name string) (*Document, error)
	List(ctx context.Context) ([]Info, error)
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "", config.BackendSQLite:
		return OpenSQLite(cfg.DatabasePath())
	case config.BackendS3:
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// normalizeName trims the name and rejects empty names and path separators.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", errors.NewInvalidRequest("name must not contain path separators")
	}
	return name, nil
}

func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
