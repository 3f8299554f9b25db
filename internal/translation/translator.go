package translation

import (
	"context"

	"github.com/bilgisen/folio/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Outcome is what a translation run produced. Failed locales are absent from Translations.
type Outcome struct {
	Translations map[string]models.Translation `json:"translations"`
	Degraded     []string                      `json:"degraded,omitempty"`
	Failed       []string                      `json:"failed,omitempty"`
}

// Translated returns the locales that were actually translated. Passthrough copies of the
// canonical text are left out so they never shadow it once stored.
func (o Outcome) Translated() map[string]models.Translation {
	out := make(map[string]models.Translation, len(o.Translations))
	for locale, tr := range o.Translations {
		out[locale] = tr
	}
	for _, locale := range o.Degraded {
		delete(out, locale)
	}
	return out
}

// Translator fans a post out to every supported locale
type Translator struct {
	provider       Provider
	locales        []string
	maxConcurrency int
	log            zerolog.Logger
}

func NewTranslator(provider Provider, locales []string, maxConcurrency int, log zerolog.Logger) *Translator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Translator{
		provider:       provider,
		locales:        locales,
		maxConcurrency: maxConcurrency,
		log:            log,
	}
}

type localeResult struct {
	locale      string
	translation models.Translation
	degraded    bool
	err         error
}

// TranslateBlogPost translates title, content and excerpt into every supported locale except
// the source one. A locale whose translation fails is logged and left out; the run itself
// never fails.
func (t *Translator) TranslateBlogPost(ctx context.Context, title, content, excerpt, sourceLocale string) Outcome {
	targets := make([]string, 0, len(t.locales))
	seen := map[string]bool{sourceLocale: true}
	for _, locale := range t.locales {
		if !seen[locale] {
			seen[locale] = true
			targets = append(targets, locale)
		}
	}

	results := make([]localeResult, len(targets))

	var g errgroup.Group
	g.SetLimit(t.maxConcurrency)
	for i, locale := range targets {
		g.Go(func() error {
			results[i] = t.translateLocale(ctx, title, content, excerpt, sourceLocale, locale)
			return nil
		})
	}
	_ = g.Wait()

	outcome := Outcome{Translations: make(map[string]models.Translation, len(targets))}
	for _, r := range results {
		if r.err != nil {
			t.log.Warn().
				Err(&models.TranslationProviderError{Locale: r.locale, Err: r.err}).
				Str("locale", r.locale).
				Msg("Translation failed, locale omitted")
			outcome.Failed = append(outcome.Failed, r.locale)
			continue
		}
		if r.degraded {
			outcome.Degraded = append(outcome.Degraded, r.locale)
		}
		outcome.Translations[r.locale] = r.translation
	}
	return outcome
}

// translateLocale runs the three field translations of one locale concurrently
func (t *Translator) translateLocale(ctx context.Context, title, content, excerpt, source, target string) localeResult {
	texts := [3]string{title, content, excerpt}
	var out [3]Result

	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		g.Go(func() error {
			res, err := t.provider.Translate(gctx, Request{
				Text:         text,
				SourceLocale: source,
				TargetLocale: target,
			})
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return localeResult{locale: target, err: err}
	}

	degraded := false
	for _, r := range out {
		if r.Status != StatusTranslated {
			degraded = true
		}
	}

	return localeResult{
		locale: target,
		translation: models.Translation{
			Title:   out[0].Text,
			Content: out[1].Text,
			Excerpt: out[2].Text,
		},
		degraded: degraded,
	}
}
