package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bilgisen/folio/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileCollection keeps one JSON file per document under basePath/posts.
// Slug uniqueness is enforced inside the process only.
type FileCollection struct {
	basePath string
	mu       sync.RWMutex
	log      zerolog.Logger
}

var _ Collection = (*FileCollection)(nil)

func NewFileCollection(basePath string) (*FileCollection, error) {
	// Create posts directory if it doesn't exist
	if err := os.MkdirAll(filepath.Join(basePath, "posts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileCollection{
		basePath: basePath,
		log:      zerolog.Nop(),
	}, nil
}

// WithLogger sets the logger that reports skipped documents
func (f *FileCollection) WithLogger(log zerolog.Logger) *FileCollection {
	f.log = log
	return f
}

func (f *FileCollection) Close() error {
	return nil
}

func (f *FileCollection) NewID() string {
	return uuid.NewString()
}

func (f *FileCollection) path(id string) string {
	return filepath.Join(f.basePath, "posts", id+".json")
}

func (f *FileCollection) Get(ctx context.Context, id string) (*Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		f.mu.RLock()
		defer f.mu.RUnlock()

		return f.read(id)
	}
}

func (f *FileCollection) read(id string) (*Document, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return Decode(id, data)
}

func (f *FileCollection) FindBySlug(ctx context.Context, slug string) ([]*Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		f.mu.RLock()
		defer f.mu.RUnlock()

		docs, err := f.readAll()
		if err != nil {
			return nil, err
		}

		var matches []*Document
		for _, doc := range docs {
			if doc.Slug == slug {
				matches = append(matches, doc)
			}
		}
		return matches, nil
	}
}

// readAll loads every document file. Undecodable files are logged and skipped.
// Callers hold the lock.
func (f *FileCollection) readAll() ([]*Document, error) {
	entries, err := os.ReadDir(filepath.Join(f.basePath, "posts"))
	if err != nil {
		return nil, fmt.Errorf("error reading storage directory: %w", err)
	}

	docs := make([]*Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		doc, err := f.read(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		var serr *models.SchemaError
		if errors.As(err, &serr) {
			f.log.Error().Err(err).Str("id", id).Msg("Skipping undecodable document")
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (f *FileCollection) Insert(ctx context.Context, doc *Document) error {
	return f.write(ctx, doc, true)
}

func (f *FileCollection) Replace(ctx context.Context, doc *Document) error {
	return f.write(ctx, doc, false)
}

func (f *FileCollection) write(ctx context.Context, doc *Document, insert bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if doc.ID == "" || strings.ContainsAny(doc.ID, `/\`) {
			return fmt.Errorf("invalid document id %q", doc.ID)
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		_, err := os.Stat(f.path(doc.ID))
		exists := err == nil
		if insert && exists {
			return fmt.Errorf("document %s already exists", doc.ID)
		}
		if !insert && !exists {
			return ErrNotFound
		}

		docs, err := f.readAll()
		if err != nil {
			return err
		}
		for _, other := range docs {
			if other.ID != doc.ID && other.Slug == doc.Slug {
				return ErrSlugTaken
			}
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		return f.replaceFile(doc.ID, data)
	}
}

// replaceFile writes through a temp file so readers never see a partial document
func (f *FileCollection) replaceFile(id string, data []byte) error {
	tmp := f.path(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	if err := os.Rename(tmp, f.path(id)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write document file: %w", err)
	}
	return nil
}

func (f *FileCollection) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		f.mu.Lock()
		defer f.mu.Unlock()

		if id == "" || strings.ContainsAny(id, `/\`) {
			return ErrNotFound
		}
		err := os.Remove(f.path(id))
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to delete document file: %w", err)
		}
		return nil
	}
}

func (f *FileCollection) ListPublished(ctx context.Context) ([]*Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		f.mu.RLock()
		defer f.mu.RUnlock()

		docs, err := f.readAll()
		if err != nil {
			return nil, err
		}

		published := make([]*Document, 0, len(docs))
		for _, doc := range docs {
			if doc.IsPublished {
				published = append(published, doc)
			}
		}
		sortByPublishedDesc(published)
		return published, nil
	}
}

// ListAll only serves unordered listings; sorting is left to the caller
func (f *FileCollection) ListAll(ctx context.Context, order Order) ([]*Document, error) {
	if order != OrderNone {
		return nil, ErrOrderUnavailable
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		f.mu.RLock()
		defer f.mu.RUnlock()

		return f.readAll()
	}
}

func (f *FileCollection) Increment(ctx context.Context, id, field string, delta int64) (int64, error) {
	if field != CounterViews && field != CounterLikes {
		return 0, fmt.Errorf("unknown counter %q", field)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
		f.mu.Lock()
		defer f.mu.Unlock()

		doc, err := f.read(id)
		if err != nil {
			return 0, err
		}
		value := bump(doc, field, delta)

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("failed to marshal document: %w", err)
		}
		if err := f.replaceFile(id, data); err != nil {
			return 0, err
		}
		return value, nil
	}
}
