package translation

import (
	"context"
	"time"

	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/utils"
	"github.com/rs/zerolog"
)

// CachedProvider serves repeated translations from a cache. The cache is advisory:
// read and write failures are logged and the provider is called as usual.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

var _ Provider = (*CachedProvider)(nil)

func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

func cacheKey(req Request) string {
	return utils.HashParts(req.SourceLocale, req.TargetLocale, req.Text)
}

func (p *CachedProvider) Translate(ctx context.Context, req Request) (Result, error) {
	key := cacheKey(req)

	if text, ok, err := p.cache.Get(ctx, key); err != nil {
		p.log.Warn().Err(err).Str("target", req.TargetLocale).Msg("Translation cache read failed")
	} else if ok {
		return Result{Text: text, Status: StatusTranslated}, nil
	}

	res, err := p.next.Translate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if res.Status == StatusTranslated {
		if err := p.cache.Set(ctx, key, res.Text, p.ttl); err != nil {
			p.log.Warn().Err(err).Str("target", req.TargetLocale).Msg("Translation cache write failed")
		}
	}
	return res, nil
}
