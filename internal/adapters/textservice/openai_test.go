package textservice

import (
	"context"
	"testing"
	"time"

	openai "linkedin-pipeline/internal/infra/openai"
)

type stubChatClient struct {
	content string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatMessage{Content: s.content}}},
	}, nil
}

func TestOpenAIExtractTopics(t *testing.T) {
	client := &stubChatClient{content: `{"topics": ["AI", " Cloud ", "", "Rust", "Go"]}`}
	svc := NewOpenAI(client, "gpt-4.1-mini", time.Second)

	topics, err := svc.ExtractTopics(context.Background(), "some article text", 3)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("ожидали обрезку до 3 тем, получили %v", topics)
	}
	if topics[0] != "AI" || topics[1] != "Cloud" || topics[2] != "Rust" {
		t.Fatalf("пустые темы отбрасываются, пробелы обрезаются: %v", topics)
	}
	if client.lastReq.ResponseFormat == nil || client.lastReq.ResponseFormat.Type != openai.ResponseFormatTypeJSONObject {
		t.Fatalf("извлечение тем должно запрашивать JSON-формат ответа")
	}
}

func TestOpenAIExtractTopicsBadJSON(t *testing.T) {
	client := &stubChatClient{content: "not json at all"}
	svc := NewOpenAI(client, "gpt-4.1-mini", time.Second)

	if _, err := svc.ExtractTopics(context.Background(), "text", 3); err == nil {
		t.Fatalf("неразборчивый JSON должен быть ошибкой")
	}
}

func TestOpenAIGenerateHashtags(t *testing.T) {
	client := &stubChatClient{content: `{"hashtags": ["#AI", "#Cloud", "#Dev"]}`}
	svc := NewOpenAI(client, "gpt-4.1-mini", time.Second)

	tags, err := svc.GenerateHashtags(context.Background(), "post body", 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(tags) != 2 || tags[0] != "#AI" || tags[1] != "#Cloud" {
		t.Fatalf("ожидали обрезку до 2 хэштегов, получили %v", tags)
	}
}

func TestOpenAIAssessRelevance(t *testing.T) {
	cases := []struct {
		content string
		want    float64
	}{
		{"0.85", 0.85},
		{" 0.2\n", 0.2},
		{"definitely relevant", 0.5},
		{"1.7", 1},
		{"-0.3", 0},
	}
	for _, tc := range cases {
		client := &stubChatClient{content: tc.content}
		svc := NewOpenAI(client, "gpt-4.1-mini", time.Second)
		got, err := svc.AssessRelevance(context.Background(), "AI")
		if err != nil {
			t.Fatalf("ответ %q: не ожидали ошибку: %v", tc.content, err)
		}
		if got != tc.want {
			t.Fatalf("ответ %q: ожидали %v, получили %v", tc.content, tc.want, got)
		}
	}
}

func TestOpenAIGenerateTextPassesSystemPrompt(t *testing.T) {
	client := &stubChatClient{content: "generated post"}
	svc := NewOpenAI(client, "gpt-4.1-mini", time.Second)

	body, err := svc.GenerateText(context.Background(), "prompt", "system", 0.7)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if body != "generated post" {
		t.Fatalf("ожидали текст ответа, получили %q", body)
	}
	if len(client.lastReq.Messages) != 2 || client.lastReq.Messages[0].Role != openai.RoleSystem {
		t.Fatalf("системный промпт должен идти первым сообщением: %+v", client.lastReq.Messages)
	}
	if client.lastReq.Temperature != 0.7 {
		t.Fatalf("температура должна передаваться, получили %v", client.lastReq.Temperature)
	}
}
