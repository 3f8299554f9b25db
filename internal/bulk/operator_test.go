package bulk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePosts struct {
	mu      sync.Mutex
	posts   map[string]*models.Post
	failFor map[string]error
	updates int
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{posts: map[string]*models.Post{}, failFor: map[string]error{}}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePosts) GetByID(_ context.Context, id, _ string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, &models.NotFoundError{Key: "id", Value: id}
	}
	return p.Clone(), nil
}

func (f *fakePosts) Update(_ context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[id]; err != nil {
		return nil, err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, &models.NotFoundError{Key: "id", Value: id}
	}
	f.updates++
	f.posts[id] = patch.ApplyTo(p)
	return f.posts[id].Clone(), nil
}

func (f *fakePosts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[id]; err != nil {
		return err
	}
	if _, ok := f.posts[id]; !ok {
		return &models.NotFoundError{Key: "id", Value: id}
	}
	delete(f.posts, id)
	return nil
}

func post(id string) *models.Post {
	return &models.Post{
		ID:      id,
		Title:   "Post " + id + " title",
		Content: "<p>" + strings.Repeat("word ", 60) + "</p>",
		Excerpt: "excerpt",
		Slug:    "post-" + id,
		Tags:    []string{},
		Image:   "https://cdn.example.com/" + id + ".png",
	}
}

func newOperator(f *fakePosts) *Operator {
	return NewOperator(f, validation.NewGate(), 4, zerolog.Nop())
}

func TestToggleSetsWhenAnyUnset(t *testing.T) {
	a, b, c := post("a"), post("b"), post("c")
	a.IsFavorited = true
	f := newFakePosts(a, b, c)

	res, err := newOperator(f).Apply(context.Background(), []string{"a", "b", "c"}, ActionFavorite)

	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.NotNil(t, res.Value)
	assert.True(t, *res.Value)
	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, f.posts[id].IsFavorited, id)
	}
}

func TestToggleClearsWhenAllSet(t *testing.T) {
	a, b := post("a"), post("b")
	a.IsBookmarked, b.IsBookmarked = true, true
	f := newFakePosts(a, b)

	res, err := newOperator(f).Apply(context.Background(), []string{"a", "b"}, ActionBookmark)

	require.NoError(t, err)
	assert.False(t, *res.Value)
	assert.False(t, f.posts["a"].IsBookmarked)
	assert.False(t, f.posts["b"].IsBookmarked)
}

func TestArchiveNeverClears(t *testing.T) {
	a, b := post("a"), post("b")
	a.IsArchived, b.IsArchived = true, true
	c := post("c")
	f := newFakePosts(a, b, c)

	res, err := newOperator(f).Apply(context.Background(), []string{"a", "b"}, ActionArchive)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.True(t, *res.Value)
	assert.True(t, f.posts["a"].IsArchived)
	assert.True(t, f.posts["b"].IsArchived)

	_, err = newOperator(f).Apply(context.Background(), []string{"c"}, ActionArchive)
	require.NoError(t, err)
	assert.True(t, f.posts["c"].IsArchived)
	assert.False(t, ActionArchive.IsToggle())
}

func TestPartialFailureSettlesEveryItem(t *testing.T) {
	f := newFakePosts(post("a"), post("b"), post("c"))
	boom := errors.New("write rejected")
	f.failFor["b"] = boom

	res, err := newOperator(f).Apply(context.Background(), []string{"a", "b", "c"}, ActionBookmark)
	require.NoError(t, err)

	// legacy view: the batch as a whole failed
	require.Error(t, res.Err())
	assert.ErrorIs(t, res.Err(), boom)

	// per item: a and c were written, b was not
	assert.ElementsMatch(t, []string{"a", "c"}, res.Succeeded())
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "b", res.Failed()[0].ID)
	assert.True(t, f.posts["a"].IsBookmarked)
	assert.False(t, f.posts["b"].IsBookmarked)
	assert.True(t, f.posts["c"].IsBookmarked)
}

func TestPublishRunsPublishGate(t *testing.T) {
	ready := post("ready")
	noImage := post("noimage")
	noImage.Image = ""
	f := newFakePosts(ready, noImage)

	res, err := newOperator(f).Apply(context.Background(), []string{"ready", "noimage"}, ActionPublish)
	require.NoError(t, err)

	assert.Equal(t, []string{"ready"}, res.Succeeded())
	failed := res.Failed()
	require.Len(t, failed, 1)
	var verr *models.ValidationError
	require.True(t, errors.As(failed[0].Err, &verr))
	assert.Equal(t, "image", verr.Fields[0].Field)

	assert.True(t, f.posts["ready"].IsPublished)
	assert.False(t, f.posts["noimage"].IsPublished)
}

func TestUnpublishAndDelete(t *testing.T) {
	a := post("a")
	a.IsPublished = true
	f := newFakePosts(a, post("b"))
	op := newOperator(f)

	res, err := op.Apply(context.Background(), []string{"a"}, ActionUnpublish)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.False(t, f.posts["a"].IsPublished)

	res, err = op.Apply(context.Background(), []string{"a", "missing"}, ActionDelete)
	require.NoError(t, err)
	assert.Nil(t, res.Value)
	assert.Equal(t, []string{"a"}, res.Succeeded())
	var nf *models.NotFoundError
	assert.True(t, errors.As(res.Err(), &nf))
	assert.NotContains(t, f.posts, "a")
	assert.Contains(t, f.posts, "b")
}

func TestToggleIgnoresUnloadablePosts(t *testing.T) {
	a := post("a")
	a.IsFavorited = true
	f := newFakePosts(a)

	res, err := newOperator(f).Apply(context.Background(), []string{"a", "ghost"}, ActionFavorite)
	require.NoError(t, err)

	assert.False(t, *res.Value)
	assert.Equal(t, []string{"a"}, res.Succeeded())
	assert.Equal(t, 1, f.updates)
}

func TestUnknownAction(t *testing.T) {
	_, err := newOperator(newFakePosts()).Apply(context.Background(), []string{"a"}, Action("explode"))
	assert.ErrorIs(t, err, ErrUnknownAction)

	a, err := ParseAction("favorite")
	require.NoError(t, err)
	assert.True(t, a.IsToggle())
	assert.False(t, ActionPublish.IsToggle())
}

func TestEmptySelection(t *testing.T) {
	res, err := newOperator(newFakePosts()).Apply(context.Background(), nil, ActionDelete)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NoError(t, res.Err())
}
