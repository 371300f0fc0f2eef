package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/usecase/scoring"
)

const (
	// Жёсткий лимит LinkedIn на длину поста.
	maxPostLength = 3000
	maxHashtags   = 5
	targetLength  = 1500

	defaultReadability = 50.0
)

var toneInstructions = map[domain.Tone]string{
	domain.ToneProfessional: "Write in a professional, authoritative tone suitable for business leaders and industry experts. Focus on insights, best practices, and strategic implications.",
	domain.ToneCasual:       "Write in a conversational, approachable tone that's still professional but more relatable. Use a friendly voice that encourages discussion.",
	domain.ToneTechnical:    "Write in a technical tone with detailed explanations suitable for developers and technical professionals. Include specific details and technical insights.",
}

var (
	inlineHashtagExpr = regexp.MustCompile(`#\w+`)
	extraBreaksExpr   = regexp.MustCompile(`\n{3,}`)
)

// Generator создаёт кандидатов постов для пары тренд×тон и сохраняет
// черновики в хранилище.
type Generator struct {
	text  domain.TextService
	posts domain.PostRepo
	log   zerolog.Logger
}

// NewGenerator создаёт генератор контента.
func NewGenerator(text domain.TextService, posts domain.PostRepo, logger zerolog.Logger) *Generator {
	return &Generator{text: text, posts: posts, log: logger}
}

// Generate запрашивает у текстового сервиса пост по теме тренда,
// нормализует его, считает метрики качества и сохраняет черновик.
func (g *Generator) Generate(ctx context.Context, trend domain.Trend, tone domain.Tone) (domain.ContentCandidate, error) {
	if !tone.Valid() {
		return domain.ContentCandidate{}, fmt.Errorf("недопустимая тональность %q", tone)
	}

	body, err := g.text.GenerateText(ctx, buildPrompt(trend), buildSystemPrompt(tone), 0.7)
	if err != nil {
		return domain.ContentCandidate{}, fmt.Errorf("генерация текста: %w", err)
	}
	body = EnsureCompliance(body)
	if body == "" {
		return domain.ContentCandidate{}, fmt.Errorf("пустой ответ генерации для темы %q", trend.Topic)
	}

	hashtags := g.buildHashtags(ctx, body, trend)
	readability := g.readability(ctx, body)

	candidate := domain.ContentCandidate{
		Trend:            &trend,
		Tone:             tone,
		Body:             body,
		Hashtags:         hashtags,
		CharacterCount:   utf8.RuneCountInString(body),
		ReadabilityScore: readability,
		EngagementScore:  scoring.EngagementHeuristic(body),
	}

	postID, err := g.posts.CreateDraft(ctx, candidate)
	if err != nil {
		return domain.ContentCandidate{}, fmt.Errorf("сохранение черновика: %w", err)
	}
	candidate.PostID = postID
	return candidate, nil
}

// buildHashtags объединяет хэштеги тренда с хэштегами по тексту,
// убирает дубли с сохранением порядка и режет до лимита. Сбой внешнего
// вызова оставляет только хэштеги тренда.
func (g *Generator) buildHashtags(ctx context.Context, body string, trend domain.Trend) []string {
	merged := append([]string(nil), trend.Hashtags...)
	extra, err := g.text.GenerateHashtags(ctx, body, maxHashtags)
	if err != nil {
		g.log.Warn().Err(err).Str("topic", trend.Topic).Msg("content: хэштеги по тексту не получены")
	} else {
		merged = append(merged, extra...)
	}

	seen := make(map[string]struct{}, len(merged))
	out := make([]string, 0, len(merged))
	for _, tag := range merged {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxHashtags {
		out = out[:maxHashtags]
	}
	return out
}

func (g *Generator) readability(ctx context.Context, body string) float64 {
	score, err := g.text.ScoreReadability(ctx, body)
	if err != nil {
		g.log.Warn().Err(err).Msg("content: оценка читабельности не удалась, используется значение по умолчанию")
		return defaultReadability
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func buildSystemPrompt(tone domain.Tone) string {
	return fmt.Sprintf(`You are an expert LinkedIn content creator specializing in technology and business topics.

Instructions:
- %s
- Target length: approximately %d characters
- Create engaging content that provides value to LinkedIn's professional audience
- Include insights, actionable takeaways, or thought-provoking questions
- Use proper formatting with line breaks for readability
- Do NOT include hashtags in the content (they will be added separately)
- Make it likely to generate meaningful professional discussions`, toneInstructions[tone], targetLength)
}

func buildPrompt(trend domain.Trend) string {
	return fmt.Sprintf(`Create a LinkedIn post about: %s

Context: this is currently a trending topic with relevance score %.2f.

Generate engaging content that will resonate with LinkedIn's tech professional audience and encourage meaningful engagement.`, trend.Topic, trend.RelevanceScore)
}

// EnsureCompliance приводит текст к требованиям LinkedIn: обрезка до
// лимита, удаление встроенных хэштегов, схлопывание лишних пустых строк.
func EnsureCompliance(body string) string {
	runes := []rune(body)
	if len(runes) > maxPostLength {
		body = string(runes[:maxPostLength-3]) + "..."
	}
	body = inlineHashtagExpr.ReplaceAllString(body, "")
	body = extraBreaksExpr.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}
