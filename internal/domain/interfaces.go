package domain

import (
	"context"
	"time"
)

// TextService — внешний текстовый сервис (LLM). Любой вызов может
// завершиться ошибкой; конвейер обязан трактовать её как «значение
// отсутствует», а не как фатальный сбой запуска.
type TextService interface {
	GenerateText(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error)
	ExtractTopics(ctx context.Context, text string, maxTopics int) ([]string, error)
	GenerateHashtags(ctx context.Context, text string, maxHashtags int) ([]string, error)
	ScoreReadability(ctx context.Context, text string) (float64, error)
	AssessRelevance(ctx context.Context, topic string) (float64, error)
}

// ArticleSource выгружает свежие статьи указанного источника.
type ArticleSource interface {
	FetchRecent(ctx context.Context, source string, hoursBack int) ([]Article, error)
}

// TrendRepo управляет темами.
type TrendRepo interface {
	// UpsertTrend обновляет тему, обнаруженную за последние 24 часа,
	// либо создаёт новую запись.
	UpsertTrend(ctx context.Context, trend Trend) (Trend, error)
	ListActiveTrends(ctx context.Context, limit int) ([]Trend, error)
	GetTrend(ctx context.Context, id int64) (Trend, error)
}

// PostRepo управляет постами.
type PostRepo interface {
	CreateDraft(ctx context.Context, candidate ContentCandidate) (int64, error)
	MarkScheduled(ctx context.Context, postID int64, publishAt time.Time) error
	// ListTrendIDsSince возвращает идентификаторы тем, по которым уже
	// создавались посты начиная с указанного момента.
	ListTrendIDsSince(ctx context.Context, since time.Time) ([]int64, error)
	ListScheduledPosts(ctx context.Context, limit int) ([]ScheduledPost, error)
}

// ActivityRepo сохраняет итоги запусков воркфлоу.
type ActivityRepo interface {
	LogRun(ctx context.Context, summary RunSummary) error
	ListRunHistory(ctx context.Context, since time.Time, limit int) ([]RunSummary, error)
}

// RunLocker обеспечивает single-flight между пересекающимися триггерами.
type RunLocker interface {
	// Acquire захватывает блокировку на ключ и возвращает true при успехе.
	// Повторный захват того же ключа до истечения TTL возвращает false
	// без ошибки.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
