// Package validation holds the draft and publish rule sets a post must pass before it is saved.
package validation

import (
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/go-playground/validator/v10"
)

// Tier selects how strict the gate is
type Tier string

const (
	TierDraft   Tier = "draft"
	TierPublish Tier = "publish"
)

// Rule thresholds
const (
	MinTitleLength   = 5
	MaxTitleLength   = 200
	MaxExcerptLength = 500
	MinDraftWords    = 10
	MinPublishWords  = 50
)

// Result is the outcome of a validation pass. Errors holds every violation found.
type Result struct {
	IsValid bool                `json:"is_valid"`
	Tier    Tier                `json:"tier"`
	Errors  []models.FieldError `json:"errors"`
}

// Err converts a failing result into a *models.ValidationError, nil when valid
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &models.ValidationError{Fields: r.Errors}
}

// Has reports whether field has at least one error
func (r Result) Has(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Gate runs the rule sets. It is safe for concurrent use.
type Gate struct {
	validate *validator.Validate
}

func NewGate() *Gate {
	return &Gate{validate: validator.New()}
}

// ValidateDraft applies the draft tier
func (g *Gate) ValidateDraft(p *models.Post) Result {
	return g.run(p, TierDraft)
}

// ValidateForPublish applies the publish tier: more words, image required
func (g *Gate) ValidateForPublish(p *models.Post) Result {
	return g.run(p, TierPublish)
}

// ValidateFor picks the tier from where the save is going, not from the stored state
func (g *Gate) ValidateFor(p *models.Post, targetPublished bool) Result {
	if targetPublished {
		return g.ValidateForPublish(p)
	}
	return g.ValidateDraft(p)
}

func (g *Gate) run(p *models.Post, tier Tier) Result {
	var errs []models.FieldError
	add := func(field, msg string) {
		errs = append(errs, models.FieldError{Field: field, Message: msg})
	}

	if msg := g.CheckTitle(p.Title); msg != "" {
		add("title", msg)
	}

	minWords := MinDraftWords
	if tier == TierPublish {
		minWords = MinPublishWords
	}
	if msg := CheckContent(p.Content, minWords); msg != "" {
		add("content", msg)
	}

	if err := slug.Validate(p.Slug); err != nil {
		add("slug", reasonOf(err))
	}

	if msg := CheckExcerpt(p.Excerpt); msg != "" {
		add("excerpt", msg)
	}

	for _, msg := range CheckTags(p.Tags) {
		add("tags", msg)
	}

	if msg := g.CheckImage(p.Image, tier == TierPublish); msg != "" {
		add("image", msg)
	}

	return Result{IsValid: len(errs) == 0, Tier: tier, Errors: errs}
}

// CheckTitle returns a message when the title breaks its rule, "" otherwise
func (g *Gate) CheckTitle(title string) string {
	n := utf8.RuneCountInString(title)
	switch {
	case n == 0:
		return "title is required"
	case n < MinTitleLength:
		return fmt.Sprintf("title must be at least %d characters", MinTitleLength)
	case n > MaxTitleLength:
		return fmt.Sprintf("title must be at most %d characters", MaxTitleLength)
	}
	return ""
}

// CheckContent enforces a minimum word count on the text view of the HTML content
func CheckContent(content string, minWords int) string {
	if content == "" {
		return "content is required"
	}
	if words := WordCount(content); words < minWords {
		return fmt.Sprintf("content must have at least %d words (has %d)", minWords, words)
	}
	return ""
}

// CheckExcerpt limits the excerpt length
func CheckExcerpt(excerpt string) string {
	if utf8.RuneCountInString(excerpt) > MaxExcerptLength {
		return fmt.Sprintf("excerpt must be at most %d characters", MaxExcerptLength)
	}
	return ""
}

// CheckTags returns one message per violation
func CheckTags(tags []string) []string {
	var msgs []string
	if len(tags) > models.MaxTags {
		msgs = append(msgs, fmt.Sprintf("at most %d tags are allowed", models.MaxTags))
	}
	for i, tag := range tags {
		n := utf8.RuneCountInString(tag)
		if n == 0 {
			msgs = append(msgs, fmt.Sprintf("tag %d is empty", i+1))
		} else if n > models.MaxTagLength {
			msgs = append(msgs, fmt.Sprintf("tag %q must be at most %d characters", tag, models.MaxTagLength))
		}
	}
	return msgs
}

// CheckImage requires a well-formed http(s) URL when present, and presence when required
func (g *Gate) CheckImage(image string, required bool) string {
	if image == "" {
		if required {
			return "image is required to publish"
		}
		return ""
	}
	if err := g.validate.Var(image, "url"); err != nil {
		return "image must be a valid URL"
	}
	u, err := url.Parse(image)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "image must be an http or https URL"
	}
	return ""
}

func reasonOf(err error) string {
	if m, ok := err.(*models.MalformedSlugError); ok {
		return m.Reason
	}
	return err.Error()
}
