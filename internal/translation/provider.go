// Package translation produces and resolves the localized overlays of a post.
package translation

import "context"

// Status tells whether a result was actually translated
type Status string

const (
	StatusTranslated              Status = "translated"
	StatusPassthroughUntranslated Status = "passthrough_untranslated"
)

type Request struct {
	Text         string
	SourceLocale string
	TargetLocale string
}

type Result struct {
	Text   string
	Status Status
}

// Provider translates one piece of text
type Provider interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// Passthrough returns the input text untranslated
func Passthrough(req Request) Result {
	return Result{Text: req.Text, Status: StatusPassthroughUntranslated}
}
