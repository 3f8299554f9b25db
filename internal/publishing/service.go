// Package publishing runs the save flow of the editing surface: slug, validation, translation, persistence.
package publishing

import (
	"context"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/bilgisen/folio/internal/translation"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/rs/zerolog"
)

// Posts is the part of the repository the service writes through
type Posts interface {
	GetByID(ctx context.Context, id, locale string) (*models.Post, error)
	Create(ctx context.Context, in models.NewPost) (*models.Post, error)
	Update(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
}

// SaveInput is one submission of the editing form. An empty ID creates a new post.
type SaveInput struct {
	ID        string         `json:"id,omitempty"`
	Post      models.NewPost `json:"post"`
	Translate bool           `json:"translate"`
}

type SaveResult struct {
	Post        *models.Post         `json:"post,omitempty"`
	Validation  validation.Result    `json:"validation"`
	Translation *translation.Outcome `json:"translation,omitempty"`
}

type Service struct {
	posts        Posts
	resolver     *slug.Resolver
	gate         *validation.Gate
	translator   *translation.Translator
	sourceLocale string
	log          zerolog.Logger
}

func NewService(posts Posts, resolver *slug.Resolver, gate *validation.Gate, translator *translation.Translator, sourceLocale string, log zerolog.Logger) *Service {
	return &Service{
		posts:        posts,
		resolver:     resolver,
		gate:         gate,
		translator:   translator,
		sourceLocale: sourceLocale,
		log:          log,
	}
}

// SavePost derives and reserves a slug, validates at the tier of the target state, optionally
// translates, then creates or updates. A failed validation returns the result with the
// *models.ValidationError and writes nothing.
func (s *Service) SavePost(ctx context.Context, in SaveInput) (*SaveResult, error) {
	form := in.Post

	if in.ID != "" {
		// the author snapshot is kept from creation
		current, err := s.posts.GetByID(ctx, in.ID, "")
		if err != nil {
			return nil, err
		}
		form.Author = current.Author
	}

	base := form.Slug
	if base == "" {
		base = slug.Derive(form.Title)
	}
	if base != "" {
		form.Slug = s.resolver.ResolveUnique(ctx, base, in.ID)
	}

	res := s.gate.ValidateFor(form.AsPost(), form.IsPublished)
	result := &SaveResult{Validation: res}
	if !res.IsValid {
		return result, res.Err()
	}

	if in.Translate && s.translator != nil {
		outcome := s.translator.TranslateBlogPost(ctx, form.Title, form.Content, form.Excerpt, s.sourceLocale)
		form.Translations = translation.MergeTranslations(form.Translations, outcome.Translated())
		result.Translation = &outcome
	}

	var (
		saved *models.Post
		err   error
	)
	if in.ID == "" {
		saved, err = s.posts.Create(ctx, form)
	} else {
		saved, err = s.posts.Update(ctx, in.ID, form.AsPatch())
	}
	if err != nil {
		return result, err
	}

	s.log.Info().
		Str("id", saved.ID).
		Str("slug", saved.Slug).
		Str("state", string(saved.DisplayState())).
		Msg("Post saved")

	result.Post = saved
	return result, nil
}

// TranslatePost translates the canonical text of a stored post and merges the translated
// locales into its existing translations
func (s *Service) TranslatePost(ctx context.Context, id string) (*models.Post, *translation.Outcome, error) {
	current, err := s.posts.GetByID(ctx, id, "")
	if err != nil {
		return nil, nil, err
	}

	outcome := s.translator.TranslateBlogPost(ctx, current.Title, current.Content, current.Excerpt, s.sourceLocale)
	translated := outcome.Translated()
	if len(translated) == 0 {
		return current, &outcome, nil
	}

	updated, err := s.posts.Update(ctx, id, models.PostPatch{Translations: translated})
	if err != nil {
		return nil, &outcome, err
	}
	return updated, &outcome, nil
}

// Validate runs the gate without saving
func (s *Service) Validate(p *models.Post, publish bool) validation.Result {
	return s.gate.ValidateFor(p, publish)
}
