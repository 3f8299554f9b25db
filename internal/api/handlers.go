package api

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bilgisen/folio/internal/bulk"
	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/media"
	"github.com/bilgisen/folio/internal/middleware"
	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/publishing"
	"github.com/bilgisen/folio/internal/repository"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/bilgisen/folio/internal/store"
	"github.com/bilgisen/folio/internal/translation"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Uploader stores an image and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, contentType string, size int64, body io.Reader) (string, error)
}

type Handlers struct {
	repo      *repository.Repository
	service   *publishing.Service
	resolver  *slug.Resolver
	operator  *bulk.Operator
	uploader  Uploader
	cache     cache.Cache
	validator *middleware.Validator
	log       zerolog.Logger
}

// Deps are the collaborators the handlers are built from. Uploader and Cache may be nil.
type Deps struct {
	Repo     *repository.Repository
	Service  *publishing.Service
	Resolver *slug.Resolver
	Operator *bulk.Operator
	Uploader Uploader
	Cache    cache.Cache
	Log      zerolog.Logger
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		repo:      d.Repo,
		service:   d.Service,
		resolver:  d.Resolver,
		operator:  d.Operator,
		uploader:  d.Uploader,
		cache:     d.Cache,
		validator: middleware.NewValidator(),
		log:       d.Log,
	}
}

// postResponse adds the derived display state to a post
type postResponse struct {
	*models.Post
	State models.DisplayState `json:"state"`
}

func present(p *models.Post) postResponse {
	return postResponse{Post: p, State: p.DisplayState()}
}

func presentAll(posts []*models.Post) []postResponse {
	out := make([]postResponse, len(posts))
	for i, p := range posts {
		out[i] = present(p)
	}
	return out
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// ListPublished handles GET /api/v1/posts
func (h *Handlers) ListPublished(c *fiber.Ctx) error {
	published, err := h.repo.ListPublished(c.UserContext(), c.Query("locale"))
	if err != nil {
		return err
	}

	// archived posts are not served publicly
	posts := make([]*models.Post, 0, len(published))
	for _, p := range published {
		if p.DisplayState() != models.StateArchived {
			posts = append(posts, p)
		}
	}

	return c.JSON(fiber.Map{
		"total": len(posts),
		"items": presentAll(posts),
	})
}

// GetPublished handles GET /api/v1/posts/:slug and counts the view
func (h *Handlers) GetPublished(c *fiber.Ctx) error {
	ctx := c.UserContext()
	s := c.Params("slug")

	post, err := h.repo.GetBySlug(ctx, s, c.Query("locale"))
	if err != nil {
		return err
	}
	if !post.IsPublished || post.IsArchived {
		return &models.NotFoundError{Key: "slug", Value: s}
	}

	views, err := h.repo.IncrementCounter(ctx, post.ID, store.CounterViews)
	if err != nil {
		h.log.Warn().Err(err).Str("id", post.ID).Msg("Failed to count view")
	} else {
		post.Views = views
	}

	return c.JSON(present(post))
}

// LikePost handles POST /api/v1/posts/:slug/like
func (h *Handlers) LikePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	s := c.Params("slug")

	post, err := h.repo.GetBySlug(ctx, s, "")
	if err != nil {
		return err
	}
	if !post.IsPublished || post.IsArchived {
		return &models.NotFoundError{Key: "slug", Value: s}
	}

	likes, err := h.repo.IncrementCounter(ctx, post.ID, store.CounterLikes)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":    post.ID,
		"likes": likes,
	})
}

// DeriveSlug handles GET /api/v1/slugs/derive
func (h *Handlers) DeriveSlug(c *fiber.Ctx) error {
	title := c.Query("title")
	if title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "title is required")
	}

	return c.JSON(fiber.Map{
		"title": title,
		"slug":  slug.Derive(title),
	})
}

// SlugAvailability handles GET /api/v1/slugs/available
func (h *Handlers) SlugAvailability(c *fiber.Ctx) error {
	s := c.Query("slug")
	if err := slug.Validate(s); err != nil {
		return err
	}
	exclude := c.Query("exclude")
	ctx := c.UserContext()

	available := h.resolver.IsAvailable(ctx, s, exclude)
	suggestion := s
	if !available {
		suggestion = h.resolver.ResolveUnique(ctx, s, exclude)
	}

	return c.JSON(fiber.Map{
		"slug":       s,
		"available":  available,
		"suggestion": suggestion,
	})
}

// ListAll handles GET /admin/posts
func (h *Handlers) ListAll(c *fiber.Ctx) error {
	posts, err := h.repo.ListAll(c.UserContext(), c.Query("locale"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"total": len(posts),
		"items": presentAll(posts),
	})
}

// GetPost handles GET /admin/posts/:id
func (h *Handlers) GetPost(c *fiber.Ctx) error {
	post, err := h.repo.GetByID(c.UserContext(), c.Params("id"), c.Query("locale"))
	if err != nil {
		return err
	}
	return c.JSON(present(post))
}

type saveRequest struct {
	Post      models.NewPost `json:"post"`
	Translate bool           `json:"translate"`
}

// saveResponse mirrors publishing.SaveResult with the display state added
type saveResponse struct {
	Post        *postResponse        `json:"post,omitempty"`
	Validation  validation.Result    `json:"validation"`
	Translation *translation.Outcome `json:"translation,omitempty"`
}

func (h *Handlers) respondSaved(c *fiber.Ctx, status int, res *publishing.SaveResult) error {
	out := saveResponse{Validation: res.Validation, Translation: res.Translation}
	if res.Post != nil {
		p := present(res.Post)
		out.Post = &p
	}
	return c.Status(status).JSON(out)
}

// CreatePost handles POST /admin/posts
func (h *Handlers) CreatePost(c *fiber.Ctx) error {
	req := middleware.Body[saveRequest](c)

	res, err := h.service.SavePost(c.UserContext(), publishing.SaveInput{
		Post:      req.Post,
		Translate: req.Translate,
	})
	if err != nil {
		return err
	}
	return h.respondSaved(c, fiber.StatusCreated, res)
}

// SavePost handles PUT /admin/posts/:id with the full editing form
func (h *Handlers) SavePost(c *fiber.Ctx) error {
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	res, err := h.service.SavePost(c.UserContext(), publishing.SaveInput{
		ID:        c.Params("id"),
		Post:      req.Post,
		Translate: req.Translate,
	})
	if err != nil {
		return err
	}
	return h.respondSaved(c, fiber.StatusOK, res)
}

// PatchPost handles PATCH /admin/posts/:id with a partial update
func (h *Handlers) PatchPost(c *fiber.Ctx) error {
	var patch models.PostPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if patch.IsEmpty() {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	post, err := h.repo.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(present(post))
}

// DeletePost handles DELETE /admin/posts/:id
func (h *Handlers) DeletePost(c *fiber.Ctx) error {
	if err := h.repo.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type validateRequest struct {
	Post    models.NewPost `json:"post"`
	Publish bool           `json:"publish"`
}

// ValidatePost handles POST /admin/posts/validate. The result is returned as is, valid or not.
func (h *Handlers) ValidatePost(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return c.JSON(h.service.Validate(req.Post.AsPost(), req.Publish))
}

// TranslatePost handles POST /admin/posts/:id/translate
func (h *Handlers) TranslatePost(c *fiber.Ctx) error {
	post, outcome, err := h.service.TranslatePost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"post":        present(post),
		"translation": outcome,
	})
}

type bulkRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
	Action string   `json:"action" validate:"required,oneof=publish unpublish archive bookmark favorite delete"`
}

type bulkItem struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Bulk handles POST /admin/posts/bulk. Partial failures answer 207 with the per-item errors.
func (h *Handlers) Bulk(c *fiber.Ctx) error {
	req := middleware.Body[bulkRequest](c)

	action, err := bulk.ParseAction(req.Action)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := h.operator.Apply(c.UserContext(), req.IDs, action)
	if err != nil {
		return err
	}

	failed := res.Failed()
	items := make([]bulkItem, len(failed))
	for i, it := range failed {
		items[i] = bulkItem{ID: it.ID, Error: it.Err.Error()}
	}
	succeeded := res.Succeeded()
	if succeeded == nil {
		succeeded = []string{}
	}

	status := fiber.StatusOK
	if len(failed) > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{
		"action":    res.Action,
		"value":     res.Value,
		"succeeded": succeeded,
		"failed":    items,
	})
}

// UploadMedia handles POST /admin/media with a multipart "file" field
func (h *Handlers) UploadMedia(c *fiber.Ctx) error {
	if h.uploader == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "media storage is not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read file")
	}
	defer f.Close()

	url, err := h.uploader.Upload(c.UserContext(), fh.Header.Get(fiber.HeaderContentType), fh.Size, f)
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, media.ErrTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	h.log.Info().Str("url", url).Int64("size", fh.Size).Msg("Media uploaded")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

// ClearTranslationCache handles DELETE /admin/translations/cache
func (h *Handlers) ClearTranslationCache(c *fiber.Ctx) error {
	if h.cache == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "translation cache is not configured")
	}
	if err := h.cache.Clear(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "failed to clear translation cache: "+err.Error())
	}

	h.log.Info().Msg("Translation cache cleared")
	return c.SendStatus(fiber.StatusNoContent)
}
