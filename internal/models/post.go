package models

import "time"

// Tag and collection limits shared by the validation gate and the store schema.
const (
	MaxTags      = 10
	MaxTagLength = 30
)

// Author is a snapshot of the writer captured when the post is created
type Author struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Translation holds the localized text of a post. Empty fields fall back to the canonical value.
type Translation struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Post is the blog post as seen by callers of the repository
type Post struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Content         string                 `json:"content"`
	Excerpt         string                 `json:"excerpt"`
	Slug            string                 `json:"slug"`
	Translations    map[string]Translation `json:"translations,omitempty"`
	Author          Author                 `json:"author"`
	Tags            []string               `json:"tags"`
	Category        string                 `json:"category,omitempty"`
	Image           string                 `json:"image,omitempty"`
	MetaDescription string                 `json:"meta_description,omitempty"`
	SEOTitle        string                 `json:"seo_title,omitempty"`
	SEOKeywords     []string               `json:"seo_keywords,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	PublishedAt     *time.Time             `json:"published_at,omitempty"`
	UpdatedAt       *time.Time             `json:"updated_at,omitempty"`
	Views           int64                  `json:"views"`
	Likes           int64                  `json:"likes"`
	IsPublished     bool                   `json:"is_published"`
	IsArchived      bool                   `json:"is_archived"`
	IsBookmarked    bool                   `json:"is_bookmarked"`
	IsFavorited     bool                   `json:"is_favorited"`

	// Locale is the locale the text fields were resolved for; empty means canonical.
	Locale string `json:"locale,omitempty"`
}

// DisplayState is derived from the lifecycle flags, it is never stored.
type DisplayState string

const (
	StateDraft     DisplayState = "draft"
	StatePublished DisplayState = "published"
	StateArchived  DisplayState = "archived"
)

// DisplayState returns the state shown to readers: archived > published > draft
func (p *Post) DisplayState() DisplayState {
	switch {
	case p.IsArchived:
		return StateArchived
	case p.IsPublished:
		return StatePublished
	default:
		return StateDraft
	}
}

// SortTime is the time used when a listing has to be ordered in memory
func (p *Post) SortTime() time.Time {
	if p.UpdatedAt != nil {
		return *p.UpdatedAt
	}
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return time.Time{}
}

// Clone returns a copy that shares no maps or slices with p
func (p *Post) Clone() *Post {
	c := *p
	if p.Translations != nil {
		c.Translations = make(map[string]Translation, len(p.Translations))
		for k, v := range p.Translations {
			c.Translations[k] = v
		}
	}
	c.Tags = copyStrings(p.Tags)
	c.SEOKeywords = copyStrings(p.SEOKeywords)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// NewPost is the input accepted by the repository when creating a post
type NewPost struct {
	Title           string                 `json:"title"`
	Content         string                 `json:"content"`
	Excerpt         string                 `json:"excerpt"`
	Slug            string                 `json:"slug"`
	Translations    map[string]Translation `json:"translations,omitempty"`
	Author          Author                 `json:"author"`
	Tags            []string               `json:"tags"`
	Category        string                 `json:"category,omitempty"`
	Image           string                 `json:"image,omitempty"`
	MetaDescription string                 `json:"meta_description,omitempty"`
	SEOTitle        string                 `json:"seo_title,omitempty"`
	SEOKeywords     []string               `json:"seo_keywords,omitempty"`
	IsPublished     bool                   `json:"is_published"`
	IsArchived      bool                   `json:"is_archived"`
	IsBookmarked    bool                   `json:"is_bookmarked"`
	IsFavorited     bool                   `json:"is_favorited"`
}

// AsPost builds the candidate post the validation gate inspects before a create
func (n *NewPost) AsPost() *Post {
	return &Post{
		Title:           n.Title,
		Content:         n.Content,
		Excerpt:         n.Excerpt,
		Slug:            n.Slug,
		Translations:    n.Translations,
		Author:          n.Author,
		Tags:            n.Tags,
		Category:        n.Category,
		Image:           n.Image,
		MetaDescription: n.MetaDescription,
		SEOTitle:        n.SEOTitle,
		SEOKeywords:     n.SEOKeywords,
		IsPublished:     n.IsPublished,
		IsArchived:      n.IsArchived,
		IsBookmarked:    n.IsBookmarked,
		IsFavorited:     n.IsFavorited,
	}
}

// AsPatch turns a full editing form into a patch that sets every editable field.
// The author is kept from creation.
func (n *NewPost) AsPatch() PostPatch {
	tags := copyStrings(n.Tags)
	if tags == nil {
		tags = []string{}
	}
	keywords := copyStrings(n.SEOKeywords)
	return PostPatch{
		Title:           &n.Title,
		Content:         &n.Content,
		Excerpt:         &n.Excerpt,
		Slug:            &n.Slug,
		Translations:    n.Translations,
		Tags:            &tags,
		Category:        &n.Category,
		Image:           &n.Image,
		MetaDescription: &n.MetaDescription,
		SEOTitle:        &n.SEOTitle,
		SEOKeywords:     &keywords,
		IsPublished:     &n.IsPublished,
		IsArchived:      &n.IsArchived,
		IsBookmarked:    &n.IsBookmarked,
		IsFavorited:     &n.IsFavorited,
	}
}

// PostPatch is a partial update. A nil field is left untouched.
type PostPatch struct {
	Title           *string                `json:"title,omitempty"`
	Content         *string                `json:"content,omitempty"`
	Excerpt         *string                `json:"excerpt,omitempty"`
	Slug            *string                `json:"slug,omitempty"`
	Translations    map[string]Translation `json:"translations,omitempty"`
	Tags            *[]string              `json:"tags,omitempty"`
	Category        *string                `json:"category,omitempty"`
	Image           *string                `json:"image,omitempty"`
	MetaDescription *string                `json:"meta_description,omitempty"`
	SEOTitle        *string                `json:"seo_title,omitempty"`
	SEOKeywords     *[]string              `json:"seo_keywords,omitempty"`
	PublishedAt     *time.Time             `json:"published_at,omitempty"`
	IsPublished     *bool                  `json:"is_published,omitempty"`
	IsArchived      *bool                  `json:"is_archived,omitempty"`
	IsBookmarked    *bool                  `json:"is_bookmarked,omitempty"`
	IsFavorited     *bool                  `json:"is_favorited,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p *PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Excerpt == nil && p.Slug == nil &&
		len(p.Translations) == 0 && p.Tags == nil && p.Category == nil && p.Image == nil &&
		p.MetaDescription == nil && p.SEOTitle == nil && p.SEOKeywords == nil &&
		p.PublishedAt == nil && p.IsPublished == nil && p.IsArchived == nil &&
		p.IsBookmarked == nil && p.IsFavorited == nil
}

// ApplyTo returns a copy of post with the patch applied. Translations are merged additively.
// PublishedAt bookkeeping is left to the repository.
func (p *PostPatch) ApplyTo(post *Post) *Post {
	out := post.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Excerpt != nil {
		out.Excerpt = *p.Excerpt
	}
	if p.Slug != nil {
		out.Slug = *p.Slug
	}
	if len(p.Translations) > 0 {
		if out.Translations == nil {
			out.Translations = make(map[string]Translation, len(p.Translations))
		}
		for locale, tr := range p.Translations {
			out.Translations[locale] = tr
		}
	}
	if p.Tags != nil {
		out.Tags = copyStrings(*p.Tags)
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	if p.MetaDescription != nil {
		out.MetaDescription = *p.MetaDescription
	}
	if p.SEOTitle != nil {
		out.SEOTitle = *p.SEOTitle
	}
	if p.SEOKeywords != nil {
		out.SEOKeywords = copyStrings(*p.SEOKeywords)
	}
	if p.IsPublished != nil {
		out.IsPublished = *p.IsPublished
	}
	if p.IsArchived != nil {
		out.IsArchived = *p.IsArchived
	}
	if p.IsBookmarked != nil {
		out.IsBookmarked = *p.IsBookmarked
	}
	if p.IsFavorited != nil {
		out.IsFavorited = *p.IsFavorited
	}
	return out
}
