package scoring

import (
	"strings"
	"unicode/utf8"
)

// Фразы и слова, по которым эвристика оценивает вовлечённость.
var (
	opinionPhrases = []string{
		"what do you think", "thoughts", "agree", "disagree",
		"share your experience", "let me know", "comment below", "your thoughts?",
	}
	insightWords = []string{"tip", "insight", "learn", "discover", "revealed", "secret", "strategy"}
	actionWords  = []string{"implement", "build", "create", "develop", "improve", "optimize"}
)

// BlendRelevance смешивает LLM-оценку релевантности с частотой упоминаний:
// 0.7*llmScore + 0.3*min(mentions/5, 1). Результат остаётся в [0,1].
func BlendRelevance(llmScore float64, mentionCount int) float64 {
	freq := float64(mentionCount) / 5
	if freq > 1 {
		freq = 1
	}
	return clamp01(0.7*llmScore + 0.3*freq)
}

// EngagementHeuristic оценивает потенциал вовлечённости текста в [0,1].
// Это эвристический суррогат, а не реальная телеметрия: фиксированный
// набор признаков без внешних вызовов.
func EngagementHeuristic(text string) float64 {
	score := 0.5
	lower := strings.ToLower(text)

	if strings.Contains(text, "?") {
		score += 0.15
	}
	if containsAny(lower, opinionPhrases) {
		score += 0.15
	}
	if containsAny(lower, insightWords) {
		score += 0.10
	}

	chars := utf8.RuneCountInString(text)
	switch {
	case chars >= 800 && chars <= 2000:
		score += 0.10
	case chars < 500:
		score -= 0.10
	}

	if strings.Count(text, "\n") >= 2 {
		score += 0.10
	}
	if containsAny(lower, actionWords) {
		score += 0.05
	}

	return clamp01(score)
}

// CompositeScore считает взвешенную итоговую оценку кандидата:
// readability*0.3 + engagement*100*0.4 + relevance*100*0.3.
// Диапазон результата — примерно [0,100].
func CompositeScore(readability, engagement, trendRelevance float64) float64 {
	return readability*0.3 + engagement*100*0.4 + trendRelevance*100*0.3
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
