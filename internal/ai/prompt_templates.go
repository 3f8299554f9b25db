package ai

import (
	"fmt"
	"strings"
)

// Kind is the shape of the text being translated
type Kind int

const (
	KindPlain Kind = iota
	KindHTML
)

// PromptTemplates contains the prompt templates used for translation
var PromptTemplates = struct {
	PlainText string
	HTML      string
}{
	PlainText: `You are a professional translator for a personal blog.
Translate the following text from %s to %s.

Rules:
1. Keep the meaning and tone of the original
2. Do not add explanations, notes or quotes
3. Respond with the translated text only

Text:
%s`,
	HTML: `You are a professional translator for a personal blog.
Translate the following HTML fragment from %s to %s.

Rules:
1. Translate only the human-readable text
2. Keep every tag, attribute and URL exactly as it is
3. Do not wrap the result in code fences
4. Respond with the translated HTML only

HTML:
%s`,
}

var localeNames = map[string]string{
	"tr": "Turkish",
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
}

// LocaleName returns the English name of a locale code, or the code itself
func LocaleName(locale string) string {
	if name, ok := localeNames[strings.ToLower(locale)]; ok {
		return name
	}
	return locale
}

// DetectKind treats text containing a tag as HTML
func DetectKind(text string) Kind {
	if strings.Contains(text, "<") && strings.Contains(text, ">") {
		return KindHTML
	}
	return KindPlain
}

// BuildTranslationPrompt creates the prompt for one translation call
func BuildTranslationPrompt(text, source, target string, kind Kind) string {
	tmpl := PromptTemplates.PlainText
	if kind == KindHTML {
		tmpl = PromptTemplates.HTML
	} else {
		text = escapeForPrompt(text)
	}
	return fmt.Sprintf(tmpl, LocaleName(source), LocaleName(target), text)
}

// escapeForPrompt flattens plain text onto one line
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
