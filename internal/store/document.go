package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/go-playground/validator/v10"
)

// Document is the wire shape of a post. Timestamps are unix milliseconds.
type Document struct {
	ID              string                        `json:"id" validate:"required"`
	Title           string                        `json:"title" validate:"required"`
	Content         string                        `json:"content" validate:"required"`
	Excerpt         string                        `json:"excerpt"`
	Slug            string                        `json:"slug" validate:"required,slug"`
	Translations    map[string]models.Translation `json:"translations,omitempty" validate:"omitempty,dive,keys,required,max=16,endkeys"`
	Author          models.Author                 `json:"author"`
	Tags            []string                      `json:"tags" validate:"max=10,dive,min=1,max=30"`
	Category        string                        `json:"category,omitempty"`
	Image           string                        `json:"image,omitempty" validate:"omitempty,url"`
	MetaDescription string                        `json:"meta_description,omitempty"`
	SEOTitle        string                        `json:"seo_title,omitempty"`
	SEOKeywords     []string                      `json:"seo_keywords,omitempty"`
	CreatedAt       int64                         `json:"created_at" validate:"gt=0"`
	PublishedAt     *int64                        `json:"published_at,omitempty" validate:"omitempty,gt=0"`
	UpdatedAt       *int64                        `json:"updated_at,omitempty" validate:"omitempty,gt=0"`
	Views           int64                         `json:"views" validate:"gte=0"`
	Likes           int64                         `json:"likes" validate:"gte=0"`
	IsPublished     bool                          `json:"is_published"`
	IsArchived      bool                          `json:"is_archived"`
	IsBookmarked    bool                          `json:"is_bookmarked"`
	IsFavorited     bool                          `json:"is_favorited"`
}

var schema = newSchema()

func newSchema() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Validate(fl.Field().String()) == nil
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CheckSchema validates the document shape. direction is models.SchemaInbound or SchemaOutbound.
func CheckSchema(doc *Document, direction string) error {
	if doc == nil {
		return &models.SchemaError{Direction: direction, Fields: []models.FieldError{{Field: "document", Message: "is nil"}}}
	}
	err := schema.Struct(doc)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &models.SchemaError{Direction: direction, DocumentID: doc.ID, Fields: []models.FieldError{{Field: "document", Message: err.Error()}}}
	}

	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Document.")
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields = append(fields, models.FieldError{Field: field, Message: msg})
	}
	return &models.SchemaError{Direction: direction, DocumentID: doc.ID, Fields: fields}
}

// Decode parses a stored document. Malformed JSON is an outbound schema error.
func Decode(id string, raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &models.SchemaError{
			Direction:  models.SchemaOutbound,
			DocumentID: id,
			Fields:     []models.FieldError{{Field: "document", Message: fmt.Sprintf("is not valid JSON: %v", err)}},
		}
	}
	return &doc, nil
}

// FromPost converts a domain post into its wire document
func FromPost(p *models.Post) *Document {
	doc := &Document{
		ID:              p.ID,
		Title:           p.Title,
		Content:         p.Content,
		Excerpt:         p.Excerpt,
		Slug:            p.Slug,
		Translations:    p.Translations,
		Author:          p.Author,
		Tags:            p.Tags,
		Category:        p.Category,
		Image:           p.Image,
		MetaDescription: p.MetaDescription,
		SEOTitle:        p.SEOTitle,
		SEOKeywords:     p.SEOKeywords,
		PublishedAt:     toMillis(p.PublishedAt),
		UpdatedAt:       toMillis(p.UpdatedAt),
		Views:           p.Views,
		Likes:           p.Likes,
		IsPublished:     p.IsPublished,
		IsArchived:      p.IsArchived,
		IsBookmarked:    p.IsBookmarked,
		IsFavorited:     p.IsFavorited,
	}
	if !p.CreatedAt.IsZero() {
		doc.CreatedAt = p.CreatedAt.UnixMilli()
	}
	return doc
}

// ToPost converts a wire document into a domain post with UTC timestamps
func (d *Document) ToPost() *models.Post {
	p := &models.Post{
		ID:              d.ID,
		Title:           d.Title,
		Content:         d.Content,
		Excerpt:         d.Excerpt,
		Slug:            d.Slug,
		Translations:    d.Translations,
		Author:          d.Author,
		Tags:            d.Tags,
		Category:        d.Category,
		Image:           d.Image,
		MetaDescription: d.MetaDescription,
		SEOTitle:        d.SEOTitle,
		SEOKeywords:     d.SEOKeywords,
		CreatedAt:       time.UnixMilli(d.CreatedAt).UTC(),
		PublishedAt:     fromMillis(d.PublishedAt),
		UpdatedAt:       fromMillis(d.UpdatedAt),
		Views:           d.Views,
		Likes:           d.Likes,
		IsPublished:     d.IsPublished,
		IsArchived:      d.IsArchived,
		IsBookmarked:    d.IsBookmarked,
		IsFavorited:     d.IsFavorited,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

func toMillis(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

// sortByPublishedDesc orders documents by publish time, newest first
func sortByPublishedDesc(docs []*Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return millisOrZero(docs[i].PublishedAt) > millisOrZero(docs[j].PublishedAt)
	})
}

func millisOrZero(ms *int64) int64 {
	if ms == nil {
		return 0
	}
	return *ms
}
