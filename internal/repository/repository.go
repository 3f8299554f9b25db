// Package repository is the only way the rest of the service reads or writes posts.
// Documents are schema checked on the way in and on the way out.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/bilgisen/folio/internal/store"
	"github.com/bilgisen/folio/internal/translation"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/rs/zerolog"
)

type Repository struct {
	store store.Collection
	gate  *validation.Gate
	log   zerolog.Logger
	now   func() time.Time
}

var _ slug.Lookup = (*Repository)(nil)

func New(c store.Collection, gate *validation.Gate, log zerolog.Logger) *Repository {
	return &Repository{
		store: c,
		gate:  gate,
		log:   log,
		now:   time.Now,
	}
}

// timestamp returns the current time at the precision the store keeps
func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// Create stores a new post. The slug must already be resolved and unique.
func (r *Repository) Create(ctx context.Context, in models.NewPost) (*models.Post, error) {
	var fields []models.FieldError
	need := func(field, value string) {
		if value == "" {
			fields = append(fields, models.FieldError{Field: field, Message: field + " is required"})
		}
	}
	need("title", in.Title)
	need("slug", in.Slug)
	need("content", in.Content)
	need("excerpt", in.Excerpt)
	need("author.id", in.Author.ID)
	need("author.name", in.Author.Name)
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	if err := slug.Validate(in.Slug); err != nil {
		return nil, err
	}

	p := in.AsPost()
	if p.IsPublished {
		if err := r.gate.ValidateForPublish(p).Err(); err != nil {
			return nil, err
		}
	}

	now := r.timestamp()
	p.CreatedAt = now
	p.UpdatedAt = &now
	if p.IsPublished {
		p.PublishedAt = &now
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	doc := store.FromPost(p)
	doc.ID = r.store.NewID()
	if err := store.CheckSchema(doc, models.SchemaInbound); err != nil {
		r.logSchema(err)
		return nil, err
	}

	if err := r.store.Insert(ctx, doc); err != nil {
		return nil, r.mapError("insert", err, "slug", doc.Slug)
	}

	r.log.Info().
		Str("id", doc.ID).
		Str("slug", doc.Slug).
		Bool("published", doc.IsPublished).
		Msg("Post created")

	return doc.ToPost(), nil
}

// Update applies a partial update. Only fields present in the patch are validated and written.
func (r *Repository) Update(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	current, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.checkPatch(&patch); err != nil {
		return nil, err
	}

	next := patch.ApplyTo(current)
	// a post only becomes published through the publish tier
	if next.IsPublished && !current.IsPublished {
		if err := r.gate.ValidateForPublish(next).Err(); err != nil {
			return nil, err
		}
	}

	now := r.timestamp()
	next.UpdatedAt = &now

	switch {
	case patch.PublishedAt != nil:
		t := patch.PublishedAt.UTC().Truncate(time.Millisecond)
		next.PublishedAt = &t
	case next.IsPublished && !current.IsPublished && current.PublishedAt == nil:
		next.PublishedAt = &now
	}
	if next.Tags == nil {
		next.Tags = []string{}
	}

	doc := store.FromPost(next)
	if err := store.CheckSchema(doc, models.SchemaInbound); err != nil {
		r.logSchema(err)
		return nil, err
	}

	if err := r.store.Replace(ctx, doc); err != nil {
		if errors.Is(err, store.ErrSlugTaken) {
			return nil, &models.SlugConflictError{Slug: doc.Slug}
		}
		return nil, r.mapError("replace", err, "id", id)
	}

	return doc.ToPost(), nil
}

// checkPatch validates each present field with its own rule
func (r *Repository) checkPatch(patch *models.PostPatch) error {
	var fields []models.FieldError
	add := func(field, msg string) {
		if msg != "" {
			fields = append(fields, models.FieldError{Field: field, Message: msg})
		}
	}

	if patch.Slug != nil {
		if err := slug.Validate(*patch.Slug); err != nil {
			return err
		}
	}
	if patch.Title != nil {
		add("title", r.gate.CheckTitle(*patch.Title))
	}
	if patch.Content != nil && *patch.Content == "" {
		add("content", "content is required")
	}
	if patch.Excerpt != nil {
		if *patch.Excerpt == "" {
			add("excerpt", "excerpt is required")
		}
		add("excerpt", validation.CheckExcerpt(*patch.Excerpt))
	}
	if patch.Tags != nil {
		for _, msg := range validation.CheckTags(*patch.Tags) {
			add("tags", msg)
		}
	}
	if patch.Image != nil {
		add("image", r.gate.CheckImage(*patch.Image, false))
	}
	if patch.PublishedAt != nil && patch.PublishedAt.IsZero() {
		add("published_at", "published_at must be a valid time")
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

// Delete removes a post permanently. Media referenced by the post is left in place.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return r.mapError("delete", err, "id", id)
	}
	r.log.Info().Str("id", id).Msg("Post deleted")
	return nil
}

// GetByID loads a post and resolves it for locale; an empty locale returns the canonical text
func (r *Repository) GetByID(ctx context.Context, id, locale string) (*models.Post, error) {
	p, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return translation.ResolveLocale(p, locale), nil
}

// GetBySlug loads the post stored under slug
func (r *Repository) GetBySlug(ctx context.Context, s, locale string) (*models.Post, error) {
	docs, err := r.store.FindBySlug(ctx, s)
	if err != nil {
		return nil, r.mapError("find by slug", err, "slug", s)
	}
	if len(docs) == 0 {
		return nil, &models.NotFoundError{Key: "slug", Value: s}
	}
	if len(docs) > 1 {
		r.log.Warn().
			Str("slug", s).
			Int("count", len(docs)).
			Msg("Slug is shared by several posts, using the first")
	}

	if err := store.CheckSchema(docs[0], models.SchemaOutbound); err != nil {
		r.logSchema(err)
		return nil, err
	}
	return translation.ResolveLocale(docs[0].ToPost(), locale), nil
}

// IDsBySlug returns the ids of every post stored under slug
func (r *Repository) IDsBySlug(ctx context.Context, s string) ([]string, error) {
	docs, err := r.store.FindBySlug(ctx, s)
	if err != nil {
		return nil, &models.StoreError{Op: "find by slug", Err: err}
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// ListPublished returns published posts, newest publish time first
func (r *Repository) ListPublished(ctx context.Context, locale string) ([]*models.Post, error) {
	docs, err := r.store.ListPublished(ctx)
	if err != nil {
		return nil, r.mapError("list published", err, "", "")
	}
	return translation.ResolveLocaleAll(r.toPosts(docs), locale), nil
}

// ListAll returns every post, most recently updated first. When the collection cannot order
// by update time the listing is sorted in memory on UpdatedAt, falling back to PublishedAt.
func (r *Repository) ListAll(ctx context.Context, locale string) ([]*models.Post, error) {
	docs, err := r.store.ListAll(ctx, store.OrderUpdatedDesc)
	if errors.Is(err, store.ErrOrderUnavailable) {
		r.log.Debug().Msg("Update order unavailable, sorting in memory")

		docs, err = r.store.ListAll(ctx, store.OrderNone)
		if err != nil {
			return nil, r.mapError("list all", err, "", "")
		}
		posts := r.toPosts(docs)
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].SortTime().After(posts[j].SortTime())
		})
		return translation.ResolveLocaleAll(posts, locale), nil
	}
	if err != nil {
		return nil, r.mapError("list all", err, "", "")
	}
	return translation.ResolveLocaleAll(r.toPosts(docs), locale), nil
}

// IncrementCounter bumps the views or likes counter of a post
func (r *Repository) IncrementCounter(ctx context.Context, id, field string) (int64, error) {
	v, err := r.store.Increment(ctx, id, field, 1)
	if err != nil {
		return 0, r.mapError("increment", err, "id", id)
	}
	return v, nil
}

func (r *Repository) load(ctx context.Context, id string) (*models.Post, error) {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, r.mapError("get", err, "id", id)
	}
	if err := store.CheckSchema(doc, models.SchemaOutbound); err != nil {
		r.logSchema(err)
		return nil, err
	}
	return doc.ToPost(), nil
}

// toPosts converts listing documents, leaving out the ones that fail the schema check
func (r *Repository) toPosts(docs []*store.Document) []*models.Post {
	posts := make([]*models.Post, 0, len(docs))
	for _, doc := range docs {
		if err := store.CheckSchema(doc, models.SchemaOutbound); err != nil {
			r.logSchema(err)
			continue
		}
		posts = append(posts, doc.ToPost())
	}
	return posts
}

func (r *Repository) logSchema(err error) {
	var serr *models.SchemaError
	if errors.As(err, &serr) {
		r.log.Error().
			Err(err).
			Str("direction", serr.Direction).
			Str("id", serr.DocumentID).
			Msg("Document failed schema check")
	}
}

// mapError turns collection errors into the domain error kinds
func (r *Repository) mapError(op string, err error, key, value string) error {
	var serr *models.SchemaError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &models.NotFoundError{Key: key, Value: value}
	case errors.Is(err, store.ErrSlugTaken):
		return &models.SlugConflictError{Slug: value}
	case errors.As(err, &serr):
		r.logSchema(err)
		return serr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &models.StoreError{Op: op, Err: err}
}
