package trends

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
)

type stubArticles struct {
	bySource map[string][]domain.Article
	failing  map[string]bool
}

func (s *stubArticles) FetchRecent(_ context.Context, source string, _ int) ([]domain.Article, error) {
	if s.failing[source] {
		return nil, fmt.Errorf("источник %s недоступен", source)
	}
	return s.bySource[source], nil
}

type stubText struct {
	topics        map[string][]string
	relevance     map[string]float64
	relevanceFail map[string]bool
	hashtagsFail  bool
	assessed      []string
}

func (s *stubText) GenerateText(context.Context, string, string, float64) (string, error) {
	return "", nil
}

func (s *stubText) ExtractTopics(_ context.Context, text string, _ int) ([]string, error) {
	return s.topics[text], nil
}

func (s *stubText) GenerateHashtags(_ context.Context, text string, _ int) ([]string, error) {
	if s.hashtagsFail {
		return nil, fmt.Errorf("хэштеги недоступны")
	}
	return []string{"#" + text}, nil
}

func (s *stubText) ScoreReadability(context.Context, string) (float64, error) { return 70, nil }

func (s *stubText) AssessRelevance(_ context.Context, topic string) (float64, error) {
	s.assessed = append(s.assessed, topic)
	if s.relevanceFail[topic] {
		return 0, fmt.Errorf("оценка недоступна")
	}
	if score, ok := s.relevance[topic]; ok {
		return score, nil
	}
	return 0.5, nil
}

func mention(topic string) domain.TopicMention {
	return domain.TopicMention{
		Topic:    topic,
		Hashtags: []string{"#" + topic},
		Article:  domain.Article{Title: topic + " article", URL: "https://example.com/" + topic},
		Source:   "techcrunch",
	}
}

func TestRankOrdersByBlendedScore(t *testing.T) {
	text := &stubText{relevance: map[string]float64{"ai": 0.9, "cloud": 0.4, "rust": 0.9}}
	svc := NewService(nil, text, zerolog.Nop(), 0)

	var mentions []domain.TopicMention
	for i := 0; i < 5; i++ {
		mentions = append(mentions, mention("AI"))
	}
	mentions = append(mentions, mention("Cloud"), mention("Cloud"), mention("Rust"))

	ranked := svc.Rank(context.Background(), mentions, 2)
	if len(ranked) != 2 {
		t.Fatalf("ожидали 2 тренда, получили %d", len(ranked))
	}
	if ranked[0].Topic != "AI" || ranked[0].MentionCount != 5 {
		t.Fatalf("первым должен быть AI с 5 упоминаниями, получили %+v", ranked[0])
	}
	if diff := ranked[0].RelevanceScore - 0.93; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("ожидали оценку 0.93 для AI, получили %v", ranked[0].RelevanceScore)
	}
	if ranked[1].Topic != "Rust" {
		t.Fatalf("вторым должен быть Rust (0.69 против 0.40 у Cloud), получили %q", ranked[1].Topic)
	}
}

func TestRankGroupsCaseInsensitive(t *testing.T) {
	text := &stubText{relevance: map[string]float64{"ai": 0.8}}
	svc := NewService(nil, text, zerolog.Nop(), 0)

	mentions := []domain.TopicMention{mention("AI"), mention("ai"), mention("Ai")}
	ranked := svc.Rank(context.Background(), mentions, 10)
	if len(ranked) != 1 {
		t.Fatalf("разный регистр должен схлопываться в одну тему, получили %d", len(ranked))
	}
	if ranked[0].Topic != "AI" {
		t.Fatalf("каноничным должно быть первое написание, получили %q", ranked[0].Topic)
	}
	if ranked[0].MentionCount != 3 {
		t.Fatalf("ожидали 3 упоминания, получили %d", ranked[0].MentionCount)
	}
}

func TestRankSkipsTopicOnRelevanceFailure(t *testing.T) {
	text := &stubText{
		relevance:     map[string]float64{"ai": 0.9},
		relevanceFail: map[string]bool{"cloud": true},
	}
	svc := NewService(nil, text, zerolog.Nop(), 0)

	mentions := []domain.TopicMention{mention("AI"), mention("Cloud")}
	ranked := svc.Rank(context.Background(), mentions, 10)
	if len(ranked) != 1 {
		t.Fatalf("сбойная тема должна пропускаться, получили %d трендов", len(ranked))
	}
	if ranked[0].Topic != "AI" {
		t.Fatalf("ожидали AI, получили %q", ranked[0].Topic)
	}
}

func TestRankHonorsMentionBudget(t *testing.T) {
	text := &stubText{}
	svc := NewService(nil, text, zerolog.Nop(), 0)

	var mentions []domain.TopicMention
	for i := 0; i < 15; i++ {
		mentions = append(mentions, mention(fmt.Sprintf("topic-%02d", i)))
	}
	ranked := svc.Rank(context.Background(), mentions, 0)
	if len(ranked) != 10 {
		t.Fatalf("бюджет упоминаний равен 10, получили %d трендов", len(ranked))
	}
	if len(text.assessed) != 10 {
		t.Fatalf("оценка релевантности должна вызываться 10 раз, вызвана %d", len(text.assessed))
	}
}

func TestAnalyzeContinuesAfterSourceFailure(t *testing.T) {
	articles := &stubArticles{
		bySource: map[string][]domain.Article{
			"techcrunch": {{Title: "AI everywhere", Summary: "launch", Source: "techcrunch"}},
		},
		failing: map[string]bool{"broken": true},
	}
	text := &stubText{
		topics:    map[string][]string{"AI everywhere launch": {"AI"}},
		relevance: map[string]float64{"ai": 0.9},
	}
	svc := NewService(articles, text, zerolog.Nop(), 0)

	ranked, err := svc.Analyze(context.Background(), []string{"broken", "techcrunch"}, 24, 5)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Topic != "AI" {
		t.Fatalf("сбой одного источника не должен ронять анализ, получили %+v", ranked)
	}
}

func TestAnalyzeKeepsTopicOnHashtagFailure(t *testing.T) {
	articles := &stubArticles{
		bySource: map[string][]domain.Article{
			"techcrunch": {{Title: "AI everywhere", Summary: "launch", Source: "techcrunch"}},
		},
	}
	text := &stubText{
		topics:       map[string][]string{"AI everywhere launch": {"AI"}},
		relevance:    map[string]float64{"ai": 0.9},
		hashtagsFail: true,
	}
	svc := NewService(articles, text, zerolog.Nop(), 0)

	ranked, err := svc.Analyze(context.Background(), []string{"techcrunch"}, 24, 5)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("сбой хэштегов не должен отбрасывать тему, получили %d", len(ranked))
	}
	if len(ranked[0].Hashtags) != 0 {
		t.Fatalf("при сбое хэштегов ожидали пустой список, получили %v", ranked[0].Hashtags)
	}
}

func TestFilterCovered(t *testing.T) {
	trends := []domain.Trend{{ID: 1, Topic: "AI"}, {ID: 2, Topic: "Cloud"}, {ID: 3, Topic: "Rust"}}

	got := FilterCovered(trends, []int64{2})
	if len(got) != 2 {
		t.Fatalf("ожидали 2 тренда после фильтра, получили %d", len(got))
	}
	for _, tr := range got {
		if tr.ID == 2 {
			t.Fatalf("тренд 2 должен быть отфильтрован")
		}
	}

	got = FilterCovered(trends, nil)
	if len(got) != 3 {
		t.Fatalf("пустая история не должна ничего фильтровать, получили %d", len(got))
	}
}

func TestSortByRelevance(t *testing.T) {
	trends := []domain.Trend{
		{Topic: "low", RelevanceScore: 0.2},
		{Topic: "high", RelevanceScore: 0.9},
		{Topic: "mid", RelevanceScore: 0.5},
	}
	got := SortByRelevance(trends, 2)
	if len(got) != 2 {
		t.Fatalf("ожидали обрезку до 2, получили %d", len(got))
	}
	if got[0].Topic != "high" || got[1].Topic != "mid" {
		t.Fatalf("ожидали порядок high, mid; получили %q, %q", got[0].Topic, got[1].Topic)
	}
	if trends[0].Topic != "low" {
		t.Fatalf("исходный срез не должен меняться")
	}
}
