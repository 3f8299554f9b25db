package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/folio/internal/translation"
	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient translates post text with the Gemini generateContent API
type GeminiClient struct {
	client    *resty.Client
	apiKey    string
	model     string
	baseURL   string
	processor *PostProcessor
}

var _ translation.Provider = (*GeminiClient)(nil)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		client:    resty.New().SetTimeout(timeout),
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		processor: NewPostProcessor(),
	}
}

// WithBaseURL points the client at another endpoint
func (g *GeminiClient) WithBaseURL(url string) *GeminiClient {
	g.baseURL = url
	return g
}

// Translate implements translation.Provider. Without an API key the text is returned untranslated.
func (g *GeminiClient) Translate(ctx context.Context, req translation.Request) (translation.Result, error) {
	if g.apiKey == "" {
		return translation.Passthrough(req), nil
	}
	if req.Text == "" {
		return translation.Result{Status: translation.StatusTranslated}, nil
	}

	kind := DetectKind(req.Text)
	prompt := BuildTranslationPrompt(req.Text, req.SourceLocale, req.TargetLocale, kind)

	response, err := g.callGeminiAPI(ctx, prompt)
	if err != nil {
		return translation.Result{}, fmt.Errorf("error calling Gemini API: %w", err)
	}

	text, err := g.processor.CleanTranslation(response, kind)
	if err != nil {
		return translation.Result{}, fmt.Errorf("error processing Gemini response: %w", err)
	}

	return translation.Result{Text: text, Status: translation.StatusTranslated}, nil
}

func (g *GeminiClient) callGeminiAPI(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{
				Text: prompt,
			}},
		}},
	}

	var resp geminiResponse
	_, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(url)

	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}
