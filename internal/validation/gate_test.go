package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/bilgisen/folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	return "<p>" + strings.TrimSpace(strings.Repeat("word ", n)) + "</p>"
}

func validPost(contentWords int) *models.Post {
	return &models.Post{
		Title:   "A perfectly fine title",
		Content: words(contentWords),
		Excerpt: "Short excerpt",
		Slug:    "a-perfectly-fine-title",
		Tags:    []string{"go", "blog"},
		Image:   "https://cdn.example.com/cover.jpg",
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"plain", "one two three", 3},
		{"nested markup", "<div><p>one <strong>two <em>three</em></strong></p></div>", 3},
		{"inline tags join", "<p>multi<b>part</b> word</p>", 2},
		{"blocks separate", "<p>first</p><p>second</p>", 2},
		{"entities", "<p>caf&eacute;&nbsp;au&nbsp;lait &amp; cream</p>", 5},
		{"encoded tags are text", "&lt;b&gt;bold&lt;/b&gt; text", 2},
		{"script ignored", "<p>visible</p><script>var hidden = 1;</script>", 1},
		{"line breaks", "one<br>two<br/>three", 3},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordCount(tt.html))
		})
	}
}

func TestValidateDraftWordThreshold(t *testing.T) {
	g := NewGate()

	nine := g.ValidateDraft(validPost(9))
	assert.False(t, nine.IsValid)
	assert.True(t, nine.Has("content"))
	assert.Len(t, nine.Errors, 1)

	ten := g.ValidateDraft(validPost(10))
	assert.True(t, ten.IsValid, "errors: %v", ten.Errors)
	assert.Equal(t, TierDraft, ten.Tier)
}

func TestValidateForPublishRequiresImageOnly(t *testing.T) {
	g := NewGate()
	p := validPost(60)
	p.Image = ""

	res := g.ValidateForPublish(p)

	require.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "image", res.Errors[0].Field)
}

func TestValidateForPublishWordThreshold(t *testing.T) {
	g := NewGate()

	assert.False(t, g.ValidateForPublish(validPost(49)).IsValid)
	assert.True(t, g.ValidateForPublish(validPost(50)).IsValid)
	assert.True(t, g.ValidateDraft(validPost(49)).IsValid)
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	g := NewGate()
	p := &models.Post{
		Title:   "Hey",
		Content: "",
		Slug:    "Bad Slug",
		Excerpt: strings.Repeat("x", 501),
		Tags:    []string{"", strings.Repeat("t", 31)},
		Image:   "not a url",
	}

	res := g.ValidateDraft(p)

	assert.False(t, res.IsValid)
	for _, field := range []string{"title", "content", "slug", "excerpt", "tags", "image"} {
		assert.True(t, res.Has(field), "expected error for %s", field)
	}

	var verr *models.ValidationError
	require.True(t, errors.As(res.Err(), &verr))
	assert.Len(t, verr.Fields, len(res.Errors))
}

func TestTagRules(t *testing.T) {
	tooMany := make([]string, 11)
	for i := range tooMany {
		tooMany[i] = "tag"
	}
	assert.Len(t, CheckTags(tooMany), 1)
	assert.Empty(t, CheckTags(tooMany[:10]))
	assert.Empty(t, CheckTags([]string{strings.Repeat("ş", 30)}))
}

func TestTitleBounds(t *testing.T) {
	g := NewGate()
	assert.NotEmpty(t, g.CheckTitle(""))
	assert.NotEmpty(t, g.CheckTitle("abcd"))
	assert.Empty(t, g.CheckTitle("abcde"))
	assert.Empty(t, g.CheckTitle(strings.Repeat("a", 200)))
	assert.NotEmpty(t, g.CheckTitle(strings.Repeat("a", 201)))
}

func TestImageRule(t *testing.T) {
	g := NewGate()
	assert.Empty(t, g.CheckImage("", false))
	assert.NotEmpty(t, g.CheckImage("", true))
	assert.Empty(t, g.CheckImage("http://example.com/a.png", true))
	assert.NotEmpty(t, g.CheckImage("ftp://example.com/a.png", false))
	assert.NotEmpty(t, g.CheckImage("/relative/path.png", false))
}

func TestValidateForChoosesTierByTarget(t *testing.T) {
	g := NewGate()
	p := validPost(20)

	assert.Equal(t, TierDraft, g.ValidateFor(p, false).Tier)
	res := g.ValidateFor(p, true)
	assert.Equal(t, TierPublish, res.Tier)
	assert.True(t, res.Has("content"))
}
