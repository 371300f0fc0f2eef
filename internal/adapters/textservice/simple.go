package textservice

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"linkedin-pipeline/internal/domain"
)

// SimpleTextService реализует domain.TextService эвристиками без сети.
// Используется в dev-режиме и как запасной вариант без API-ключа.
type SimpleTextService struct{}

var _ domain.TextService = (*SimpleTextService)(nil)

// NewSimple создаёт сервис.
func NewSimple() *SimpleTextService {
	return &SimpleTextService{}
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {}, "about": {},
	"can": {}, "may": {}, "might": {}, "must": {}, "get": {}, "make": {}, "take": {},
}

var techKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "startup", "funding",
	"software", "technology", "tech", "programming", "developer", "cloud",
	"cybersecurity", "blockchain", "fintech", "saas", "api", "platform",
	"automation", "robotics", "analytics", "enterprise",
}

var nonAlnumExpr = regexp.MustCompile(`[^a-z0-9 ]+`)

// GenerateText собирает шаблонный пост по теме из промпта.
func (s *SimpleTextService) GenerateText(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	topic := prompt
	if idx := strings.Index(prompt, "about: "); idx >= 0 {
		topic = prompt[idx+len("about: "):]
		if nl := strings.IndexByte(topic, '\n'); nl >= 0 {
			topic = topic[:nl]
		}
	}
	topic = strings.TrimSpace(topic)
	body := fmt.Sprintf(`%s keeps coming up in conversations with engineering and product teams.

Three things stand out:
1. Teams that invest early see compounding returns.
2. The tooling matured faster than most roadmaps assumed.
3. Adoption is an organizational problem before it is a technical one.

The practical insight: start with one narrow workflow, measure it, then expand. Trying to implement everything at once is how these initiatives stall.

What has your experience been with %s? Would love to hear what worked and what didn't.`, topic, strings.ToLower(topic))
	return body, nil
}

// ExtractTopics выделяет наиболее частотные слова как темы.
func (s *SimpleTextService) ExtractTopics(ctx context.Context, text string, maxTopics int) ([]string, error) {
	clean := nonAlnumExpr.ReplaceAllString(strings.ToLower(text), " ")
	counts := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(clean) {
		if len(word) <= 2 {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > maxTopics {
		order = order[:maxTopics]
	}
	return order, nil
}

// GenerateHashtags строит хэштеги из тем текста.
func (s *SimpleTextService) GenerateHashtags(ctx context.Context, text string, maxHashtags int) ([]string, error) {
	topics, err := s.ExtractTopics(ctx, text, maxHashtags)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(topics))
	for _, topic := range topics {
		tag := strings.ReplaceAll(strings.ReplaceAll(topic, " ", ""), "-", "")
		if len(tag) > 2 {
			tags = append(tags, "#"+tag)
		}
	}
	return tags, nil
}

// ScoreReadability возвращает эвристическую оценку читабельности.
func (s *SimpleTextService) ScoreReadability(ctx context.Context, text string) (float64, error) {
	return readabilityScore(text), nil
}

// AssessRelevance оценивает тему по словарю технологических ключевых слов.
func (s *SimpleTextService) AssessRelevance(ctx context.Context, topic string) (float64, error) {
	lower := strings.ToLower(topic)
	for _, kw := range techKeywords {
		if strings.Contains(lower, kw) {
			return 0.8, nil
		}
	}
	return 0.5, nil
}

var sentenceSplitExpr = regexp.MustCompile(`[.!?]+`)

// readabilityScore — упрощённая оценка читабельности в [0,100]:
// базовые 80 баллов со штрафами за длинные предложения и длинные слова.
func readabilityScore(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 50.0
	}

	var sentences int
	for _, s := range sentenceSplitExpr.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := strings.Fields(text)
	if len(words) == 0 || sentences == 0 {
		return 50.0
	}

	avgWordsPerSentence := float64(len(words)) / float64(sentences)
	totalChars := 0
	for _, w := range words {
		totalChars += len(w)
	}
	avgCharsPerWord := float64(totalChars) / float64(len(words))

	score := 80.0
	if avgWordsPerSentence > 20 {
		score -= (avgWordsPerSentence - 20) * 2
	} else if avgWordsPerSentence < 10 {
		score -= (10 - avgWordsPerSentence) * 1
	}
	if avgCharsPerWord > 6 {
		score -= (avgCharsPerWord - 6) * 3
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
