package translation

import "github.com/bilgisen/folio/internal/models"

// ResolveLocale returns a copy of p with the locale's translated fields overlaid on the
// canonical ones. Missing or empty translated fields keep the canonical value.
func ResolveLocale(p *models.Post, locale string) *models.Post {
	if p == nil {
		return nil
	}

	out := p.Clone()
	if locale == "" {
		return out
	}
	out.Locale = locale

	tr, ok := p.Translations[locale]
	if !ok {
		return out
	}
	if tr.Title != "" {
		out.Title = tr.Title
	}
	if tr.Content != "" {
		out.Content = tr.Content
	}
	if tr.Excerpt != "" {
		out.Excerpt = tr.Excerpt
	}
	return out
}

// ResolveLocaleAll resolves every post of a listing
func ResolveLocaleAll(posts []*models.Post, locale string) []*models.Post {
	out := make([]*models.Post, len(posts))
	for i, p := range posts {
		out[i] = ResolveLocale(p, locale)
	}
	return out
}

// MergeTranslations adds fresh to existing. A locale present in fresh replaces the
// existing entry; other locales are kept.
func MergeTranslations(existing, fresh map[string]models.Translation) map[string]models.Translation {
	out := make(map[string]models.Translation, len(existing)+len(fresh))
	for locale, tr := range existing {
		out[locale] = tr
	}
	for locale, tr := range fresh {
		out[locale] = tr
	}
	return out
}
