package translation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type httpRequest struct {
	Text         string `json:"text"`
	SourceLocale string `json:"sourceLocale"`
	TargetLocale string `json:"targetLocale"`
}

type httpResponse struct {
	TranslatedText string `json:"translatedText"`
}

type httpError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPProvider calls a JSON translation endpoint with a bearer credential
type HTTPProvider struct {
	client *resty.Client
	url    string
	apiKey string
}

var _ Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(url, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		apiKey: apiKey,
	}
}

// Translate returns the input untranslated when no credential is configured
func (p *HTTPProvider) Translate(ctx context.Context, req Request) (Result, error) {
	if p.apiKey == "" || p.url == "" {
		return Passthrough(req), nil
	}
	if req.Text == "" {
		return Result{Status: StatusTranslated}, nil
	}

	var (
		out    httpResponse
		errOut httpError
	)
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(httpRequest{
			Text:         req.Text,
			SourceLocale: req.SourceLocale,
			TargetLocale: req.TargetLocale,
		}).
		SetResult(&out).
		SetError(&errOut).
		Post(p.url)
	if err != nil {
		return Result{}, fmt.Errorf("API request failed: %w", err)
	}

	if resp.IsError() {
		msg := errOut.Message
		if msg == "" {
			msg = errOut.Error
		}
		if msg == "" {
			msg = resp.Status()
		}
		return Result{}, fmt.Errorf("API error (%d): %s", resp.StatusCode(), msg)
	}

	if out.TranslatedText == "" {
		return Result{}, fmt.Errorf("no translated text in response")
	}

	return Result{Text: out.TranslatedText, Status: StatusTranslated}, nil
}
