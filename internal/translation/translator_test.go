package translation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider prefixes text with the target locale and fails for chosen locales
type fakeProvider struct {
	mu       sync.Mutex
	failFor  map[string]bool
	passFor  map[string]bool
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeProvider) Translate(ctx context.Context, req Request) (Result, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failFor[req.TargetLocale] {
		return Result{}, errors.New("provider unavailable")
	}
	if f.passFor[req.TargetLocale] {
		return Passthrough(req), nil
	}
	return Result{Text: req.TargetLocale + ":" + req.Text, Status: StatusTranslated}, nil
}

func TestTranslateBlogPostOmitsFailedLocale(t *testing.T) {
	p := &fakeProvider{failFor: map[string]bool{"fr": true}}
	tr := NewTranslator(p, []string{"tr", "en", "de", "fr"}, 5, zerolog.Nop())

	out := tr.TranslateBlogPost(context.Background(), "Başlık", "<p>İçerik</p>", "Özet", "tr")

	require.Len(t, out.Translations, 2)
	assert.Equal(t, models.Translation{Title: "de:Başlık", Content: "de:<p>İçerik</p>", Excerpt: "de:Özet"}, out.Translations["de"])
	assert.Contains(t, out.Translations, "en")
	assert.NotContains(t, out.Translations, "fr")
	assert.NotContains(t, out.Translations, "tr")
	assert.Equal(t, []string{"fr"}, out.Failed)
	assert.Empty(t, out.Degraded)
}

func TestTranslateBlogPostMarksPassthroughDegraded(t *testing.T) {
	p := &fakeProvider{passFor: map[string]bool{"en": true}}
	tr := NewTranslator(p, []string{"tr", "en"}, 2, zerolog.Nop())

	out := tr.TranslateBlogPost(context.Background(), "Başlık", "İçerik", "Özet", "tr")

	assert.Equal(t, []string{"en"}, out.Degraded)
	assert.Equal(t, "Başlık", out.Translations["en"].Title)
}

func TestTranslateBlogPostBoundsConcurrency(t *testing.T) {
	p := &fakeProvider{delay: 10 * time.Millisecond}
	tr := NewTranslator(p, []string{"a", "b", "c", "d", "e", "f"}, 2, zerolog.Nop())

	out := tr.TranslateBlogPost(context.Background(), "t", "c", "e", "src")

	assert.Len(t, out.Translations, 6)
	assert.Equal(t, 18, p.calls)
	// two locales at a time, three fields each
	assert.LessOrEqual(t, atomic.LoadInt32(&p.maxSeen), int32(6))
}

func TestTranslateBlogPostAllFail(t *testing.T) {
	p := &fakeProvider{failFor: map[string]bool{"en": true, "de": true}}
	tr := NewTranslator(p, []string{"en", "de"}, 2, zerolog.Nop())

	out := tr.TranslateBlogPost(context.Background(), "t", "c", "e", "tr")

	assert.Empty(t, out.Translations)
	assert.ElementsMatch(t, []string{"en", "de"}, out.Failed)
}

func TestCachedProvider(t *testing.T) {
	p := &fakeProvider{passFor: map[string]bool{"de": true}}
	c := cache.NewMemoryClient()
	cp := NewCachedProvider(p, c, time.Hour, zerolog.Nop())
	ctx := context.Background()

	req := Request{Text: "merhaba", SourceLocale: "tr", TargetLocale: "en"}
	first, err := cp.Translate(ctx, req)
	require.NoError(t, err)
	second, err := cp.Translate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls)

	// passthrough results are not cached
	pass := Request{Text: "merhaba", SourceLocale: "tr", TargetLocale: "de"}
	_, _ = cp.Translate(ctx, pass)
	res, _ := cp.Translate(ctx, pass)
	assert.Equal(t, StatusPassthroughUntranslated, res.Status)
	assert.Equal(t, 3, p.calls)
}

func TestOutcomeTranslatedDropsDegraded(t *testing.T) {
	o := Outcome{
		Translations: map[string]models.Translation{
			"en": {Title: "Hello"},
			"de": {Title: "Merhaba"},
		},
		Degraded: []string{"de"},
	}

	got := o.Translated()

	assert.Equal(t, map[string]models.Translation{"en": {Title: "Hello"}}, got)
	assert.Len(t, o.Translations, 2)
}
