package ai

import (
	"errors"
	"regexp"
	"strings"
)

var (
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	scriptBlocks   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	dangerousTags  = regexp.MustCompile(`(?i)</?(script|iframe|object|embed|link|meta)[^>]*>`)
	codeFenceStart = regexp.MustCompile("^```[a-zA-Z]*\\s*\n?")
)

// PostProcessor cleans model output before it is stored as a translation
type PostProcessor struct{}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{}
}

// CleanTranslation strips wrapping added by the model and normalizes the text
func (p *PostProcessor) CleanTranslation(response string, kind Kind) (string, error) {
	out := p.stripCodeFence(strings.TrimSpace(response))

	if kind == KindHTML {
		out = p.cleanHTML(out)
	} else {
		out = p.cleanText(out)
	}

	if out == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}

// stripCodeFence removes a markdown code block around the whole response
func (p *PostProcessor) stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = codeFenceStart.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// cleanText removes control characters and normalizes whitespace
func (p *PostProcessor) cleanText(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

// cleanHTML drops executable markup the model may have introduced
func (p *PostProcessor) cleanHTML(content string) string {
	content = scriptBlocks.ReplaceAllString(content, "")
	content = dangerousTags.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = controlChars.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
