package trends

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/usecase/scoring"
)

const (
	maxTopicsPerArticle = 3
	maxHashtagsPerTopic = 3
	// Бюджет ранжирования: учитываются только первые упоминания,
	// полный проход по всему набору не выполняется.
	rankMentionBudget = 10
)

// Service извлекает темы из статей и ранжирует их по релевантности
// и частоте упоминаний.
type Service struct {
	articles domain.ArticleSource
	text     domain.TextService
	log      zerolog.Logger
	pause    time.Duration
}

// NewService создаёт сервис трендов. pause — пауза между внешними
// вызовами, защита от rate limit.
func NewService(articles domain.ArticleSource, text domain.TextService, logger zerolog.Logger, pause time.Duration) *Service {
	return &Service{articles: articles, text: text, log: logger, pause: pause}
}

// Analyze выполняет полный цикл: статьи → упоминания тем → ранжирование.
// Возвращает не более limit трендов, отсортированных по убыванию оценки.
func (s *Service) Analyze(ctx context.Context, sources []string, hoursBack, limit int) ([]domain.Trend, error) {
	var articles []domain.Article
	for _, source := range sources {
		fetched, err := s.articles.FetchRecent(ctx, source, hoursBack)
		if err != nil {
			s.log.Error().Err(err).Str("source", source).Msg("trends: не удалось получить статьи")
			continue
		}
		articles = append(articles, fetched...)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	mentions := s.collectMentions(ctx, articles)
	return s.Rank(ctx, mentions, limit), nil
}

// collectMentions извлекает темы и хэштеги из каждой статьи. Сбой на
// одной статье или теме отбрасывает только её.
func (s *Service) collectMentions(ctx context.Context, articles []domain.Article) []domain.TopicMention {
	var mentions []domain.TopicMention
	for _, article := range articles {
		text := strings.TrimSpace(article.Title + " " + article.Summary)
		topics, err := s.text.ExtractTopics(ctx, text, maxTopicsPerArticle)
		if err != nil {
			s.log.Error().Err(err).Str("article", article.URL).Msg("trends: извлечение тем не удалось")
			continue
		}
		for _, topic := range topics {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			hashtags, err := s.text.GenerateHashtags(ctx, topic, maxHashtagsPerTopic)
			if err != nil {
				s.log.Error().Err(err).Str("topic", topic).Msg("trends: хэштеги не получены")
				hashtags = nil
			}
			mentions = append(mentions, domain.TopicMention{
				Topic:    topic,
				Hashtags: hashtags,
				Article:  article,
				Source:   article.Source,
			})
		}
		s.sleep(ctx)
	}
	return mentions
}

// Rank группирует упоминания по теме без учёта регистра, запрашивает
// релевантность у текстового сервиса и сортирует по итоговой оценке.
// Сбой оценки одной темы исключает только её и никогда не прерывает
// весь набор.
func (s *Service) Rank(ctx context.Context, mentions []domain.TopicMention, limit int) []domain.Trend {
	counts := make(map[string]int)
	first := make(map[string]domain.TopicMention)
	var order []string

	budget := 0
	for _, m := range mentions {
		if budget >= rankMentionBudget {
			break
		}
		key := strings.ToLower(m.Topic)
		if _, ok := counts[key]; !ok {
			first[key] = m
			order = append(order, key)
		}
		counts[key]++
		budget++
	}

	ranked := make([]domain.Trend, 0, len(order))
	for _, key := range order {
		seed := first[key]
		relevance, err := s.text.AssessRelevance(ctx, key)
		if err != nil {
			s.log.Error().Err(err).Str("topic", key).Msg("trends: оценка релевантности не удалась")
			continue
		}
		final := scoring.BlendRelevance(relevance, counts[key])
		ranked = append(ranked, domain.Trend{
			Topic:          seed.Topic,
			Hashtags:       seed.Hashtags,
			RelevanceScore: final,
			MentionCount:   counts[key],
			Source:         seed.Source,
			SourceTitle:    seed.Article.Title,
			SourceURL:      seed.Article.URL,
			IsActive:       true,
		})
		s.sleep(ctx)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RelevanceScore > ranked[j].RelevanceScore })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (s *Service) sleep(ctx context.Context) {
	if s.pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.pause):
	}
}

// FilterCovered убирает тренды, по которым за окно давности уже
// создавались посты. Чистая операция над переданной историей.
func FilterCovered(trends []domain.Trend, coveredTrendIDs []int64) []domain.Trend {
	if len(coveredTrendIDs) == 0 {
		return trends
	}
	covered := make(map[int64]struct{}, len(coveredTrendIDs))
	for _, id := range coveredTrendIDs {
		covered[id] = struct{}{}
	}
	out := make([]domain.Trend, 0, len(trends))
	for _, t := range trends {
		if _, ok := covered[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortByRelevance сортирует тренды по убыванию релевантности и
// обрезает список до limit.
func SortByRelevance(trends []domain.Trend, limit int) []domain.Trend {
	sorted := make([]domain.Trend, len(trends))
	copy(sorted, trends)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RelevanceScore > sorted[j].RelevanceScore })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
