package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// urlPattern matches http(s) links and bare www. hosts in free text
var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"'()\[\]{}]+`)

// trailingPunct is stripped from the end of a match; it usually belongs to
// the surrounding sentence
const trailingPunct = ".,;:!?"

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// ExtractURLs returns the distinct links found in text, in order of first
// appearance. At most max links are returned; max <= 0 means no limit.
func (tp *TextProcessor) ExtractURLs(text string, max int) []string {
	text = html.UnescapeString(tp.SanitizeUTF8(text))

	seen := make(map[string]struct{})
	var urls []string
	for _, match := range urlPattern.FindAllString(text, -1) {
		link := strings.TrimRight(match, trailingPunct)
		if strings.HasPrefix(strings.ToLower(link), "www.") {
			link = "http://" + link
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		urls = append(urls, link)

		if max > 0 && len(urls) == max {
			tp.logger.Debug("Link limit reached", zap.Int("max_urls", max))
			break
		}
	}

	return urls
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Drop invalid UTF-8 sequences
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}
