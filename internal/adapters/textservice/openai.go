package textservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"linkedin-pipeline/internal/domain"
	openai "linkedin-pipeline/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует domain.TextService через Chat Completions.
type OpenAI struct {
	client  chatClient
	model   string
	timeout time.Duration
}

var _ domain.TextService = (*OpenAI)(nil)

// NewOpenAI создаёт текстовый сервис на базе OpenAI.
func NewOpenAI(client chatClient, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout}
}

// GenerateText выполняет свободную генерацию по промпту.
func (s *OpenAI) GenerateText(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := make([]openai.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatMessage{Role: openai.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatMessage{Role: openai.RoleUser, Content: prompt})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: пустой ответ")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type topicsPayload struct {
	Topics []string `json:"topics"`
}

// ExtractTopics выделяет основные темы текста.
func (s *OpenAI) ExtractTopics(ctx context.Context, text string, maxTopics int) ([]string, error) {
	system := fmt.Sprintf(`You are a topic extraction expert. Extract the main topics from the given text.
Focus on technology, business, and professional topics relevant to LinkedIn.
Return strictly JSON of the form {"topics": ["..."]} with up to %d topics.`, maxTopics)

	raw, err := s.jsonCompletion(ctx, system, "Extract the main topics from this text: "+clipRunes(text, 2000), 0.1)
	if err != nil {
		return nil, err
	}
	var parsed topicsPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	topics := filterNonEmpty(parsed.Topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics, nil
}

type hashtagsPayload struct {
	Hashtags []string `json:"hashtags"`
}

// GenerateHashtags подбирает хэштеги к тексту.
func (s *OpenAI) GenerateHashtags(ctx context.Context, text string, maxHashtags int) ([]string, error) {
	system := fmt.Sprintf(`You are a LinkedIn hashtag expert. Suggest short, widely used hashtags for the given text.
Return strictly JSON of the form {"hashtags": ["#Tag"]} with up to %d hashtags.`, maxHashtags)

	raw, err := s.jsonCompletion(ctx, system, "Suggest hashtags for this text: "+clipRunes(text, 2000), 0.1)
	if err != nil {
		return nil, err
	}
	var parsed hashtagsPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	tags := filterNonEmpty(parsed.Hashtags)
	if len(tags) > maxHashtags {
		tags = tags[:maxHashtags]
	}
	return tags, nil
}

// ScoreReadability оценивает читабельность локальной формулой: для
// фиксированной метрики LLM не нужен.
func (s *OpenAI) ScoreReadability(ctx context.Context, text string) (float64, error) {
	return readabilityScore(text), nil
}

// AssessRelevance запрашивает у модели релевантность темы для
// профессиональной аудитории. Неразборчивый ответ трактуется как 0.5.
func (s *OpenAI) AssessRelevance(ctx context.Context, topic string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Rate the relevance of this topic for LinkedIn's tech professional audience on a scale of 0-1:
Topic: %s

Consider:
- Professional relevance
- Technology focus
- Business impact
- Current interest level

Respond with just a number between 0 and 1.`, topic)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.1,
		Messages:    []openai.ChatMessage{{Role: openai.RoleUser, Content: prompt}},
	})
	if err != nil {
		return 0, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("openai completion: пустой ответ")
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(resp.Choices[0].Message.Content), 64)
	if err != nil {
		return 0.5, nil
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return value, nil
}

func (s *OpenAI) jsonCompletion(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          s.model,
		Temperature:    temperature,
		Messages:       []openai.ChatMessage{{Role: openai.RoleSystem, Content: system}, {Role: openai.RoleUser, Content: prompt}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: пустой ответ")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func filterNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
