package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.TrendRepo    = (*Postgres)(nil)
	_ domain.PostRepo     = (*Postgres)(nil)
	_ domain.ActivityRepo = (*Postgres)(nil)
)

// Окно, в пределах которого повторная тема считается той же записью.
const trendUpsertWindow = 24 * time.Hour

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// UpsertTrend обновляет тему, обнаруженную за последние 24 часа, либо
// создаёт новую запись.
func (p *Postgres) UpsertTrend(ctx context.Context, trend domain.Trend) (domain.Trend, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	hashtags, err := json.Marshal(trend.Hashtags)
	if err != nil {
		return domain.Trend{}, fmt.Errorf("marshal hashtags: %w", err)
	}
	if trend.DetectedAt.IsZero() {
		trend.DetectedAt = time.Now().UTC()
	}
	topic := strings.TrimSpace(trend.Topic)

	start := time.Now()
	err = p.pool.QueryRow(ctx, `
UPDATE trend_topics
SET mention_count = $2,
    relevance_score = $3,
    hashtags = $4,
    detected_at = $5,
    is_active = true
WHERE lower(topic) = lower($1) AND detected_at >= $6
RETURNING id
`, topic, trend.MentionCount, trend.RelevanceScore, hashtags, trend.DetectedAt, trend.DetectedAt.Add(-trendUpsertWindow)).Scan(&trend.ID)
	metrics.ObserveNetworkRequest("postgres", "trend_topics_update", "trend_topics", start, err)
	if err == nil {
		trend.Topic = topic
		trend.IsActive = true
		return trend, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Trend{}, err
	}

	start = time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO trend_topics (topic, hashtags, relevance_score, mention_count, source, source_title, source_url, detected_at, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
RETURNING id
`, topic, hashtags, trend.RelevanceScore, trend.MentionCount, trend.Source, trend.SourceTitle, trend.SourceURL, trend.DetectedAt).Scan(&trend.ID)
	metrics.ObserveNetworkRequest("postgres", "trend_topics_insert", "trend_topics", start, err)
	if err != nil {
		return domain.Trend{}, err
	}
	trend.Topic = topic
	trend.IsActive = true
	return trend, nil
}

// ListActiveTrends возвращает активные темы по убыванию релевантности.
func (p *Postgres) ListActiveTrends(ctx context.Context, limit int) ([]domain.Trend, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, topic, hashtags, relevance_score, mention_count, source, source_title, source_url, detected_at, is_active
FROM trend_topics
WHERE is_active
ORDER BY relevance_score DESC, detected_at DESC
LIMIT $1
`, limit)
	metrics.ObserveNetworkRequest("postgres", "trend_topics_list_active", "trend_topics", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []domain.Trend
	for rows.Next() {
		trend, err := scanTrend(rows)
		if err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}

// GetTrend возвращает тему по идентификатору.
func (p *Postgres) GetTrend(ctx context.Context, id int64) (domain.Trend, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, topic, hashtags, relevance_score, mention_count, source, source_title, source_url, detected_at, is_active
FROM trend_topics WHERE id = $1
`, id)
	trend, err := scanTrend(row)
	metrics.ObserveNetworkRequest("postgres", "trend_topics_get", "trend_topics", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trend{}, fmt.Errorf("trend %d not found", id)
	}
	return trend, err
}

func scanTrend(row pgx.Row) (domain.Trend, error) {
	var (
		trend       domain.Trend
		hashtags    []byte
		sourceTitle sql.NullString
		sourceURL   sql.NullString
	)
	if err := row.Scan(&trend.ID, &trend.Topic, &hashtags, &trend.RelevanceScore, &trend.MentionCount, &trend.Source, &sourceTitle, &sourceURL, &trend.DetectedAt, &trend.IsActive); err != nil {
		return domain.Trend{}, err
	}
	if len(hashtags) > 0 {
		if err := json.Unmarshal(hashtags, &trend.Hashtags); err != nil {
			return domain.Trend{}, fmt.Errorf("unmarshal hashtags: %w", err)
		}
	}
	if sourceTitle.Valid {
		trend.SourceTitle = sourceTitle.String
	}
	if sourceURL.Valid {
		trend.SourceURL = sourceURL.String
	}
	return trend, nil
}

// CreateDraft сохраняет сгенерированный пост в статусе draft.
func (p *Postgres) CreateDraft(ctx context.Context, candidate domain.ContentCandidate) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	hashtags, err := json.Marshal(candidate.Hashtags)
	if err != nil {
		return 0, fmt.Errorf("marshal hashtags: %w", err)
	}
	var trendID sql.NullInt64
	if candidate.Trend != nil && candidate.Trend.ID != 0 {
		trendID = sql.NullInt64{Int64: candidate.Trend.ID, Valid: true}
	}

	var id int64
	start := time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO posts (trend_topic_id, tone, body, hashtags, character_count, readability_score, engagement_score, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`, trendID, string(candidate.Tone), candidate.Body, hashtags, candidate.CharacterCount, candidate.ReadabilityScore, candidate.EngagementScore, string(domain.PostStatusDraft)).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "posts_insert_draft", "posts", start, err)
	return id, err
}

// MarkScheduled переводит пост в статус scheduled с временем публикации.
func (p *Postgres) MarkScheduled(ctx context.Context, postID int64, publishAt time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
UPDATE posts SET status = $2, scheduled_at = $3 WHERE id = $1
`, postID, string(domain.PostStatusScheduled), publishAt.UTC())
	metrics.ObserveNetworkRequest("postgres", "posts_mark_scheduled", "posts", start, err)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("post %d not found", postID)
	}
	return nil
}

// ListTrendIDsSince возвращает идентификаторы тем, по которым уже
// создавались посты начиная с указанного момента.
func (p *Postgres) ListTrendIDsSince(ctx context.Context, since time.Time) ([]int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT DISTINCT trend_topic_id
FROM posts
WHERE trend_topic_id IS NOT NULL AND created_at >= $1
`, since.UTC())
	metrics.ObserveNetworkRequest("postgres", "posts_list_trend_ids", "posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListScheduledPosts возвращает запланированные посты по времени публикации.
func (p *Postgres) ListScheduledPosts(ctx context.Context, limit int) ([]domain.ScheduledPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, scheduled_at, body, status
FROM posts
WHERE status = $1 AND scheduled_at IS NOT NULL
ORDER BY scheduled_at
LIMIT $2
`, string(domain.PostStatusScheduled), limit)
	metrics.ObserveNetworkRequest("postgres", "posts_list_scheduled", "posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.ScheduledPost
	for rows.Next() {
		var (
			post   domain.ScheduledPost
			body   string
			status string
		)
		if err := rows.Scan(&post.PostID, &post.PublishAt, &body, &status); err != nil {
			return nil, err
		}
		post.Preview = previewText(body)
		post.Status = domain.PostStatus(status)
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

const previewLength = 100

func previewText(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "..."
}

// LogRun сохраняет итог запуска воркфлоу.
func (p *Postgres) LogRun(ctx context.Context, summary domain.RunSummary) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var errorsJSON []byte
	if len(summary.Errors) > 0 {
		data, err := json.Marshal(summary.Errors)
		if err != nil {
			return fmt.Errorf("marshal errors: %w", err)
		}
		errorsJSON = data
	}
	var scheduledJSON []byte
	if len(summary.Scheduled) > 0 {
		data, err := json.Marshal(summary.Scheduled)
		if err != nil {
			return fmt.Errorf("marshal scheduled: %w", err)
		}
		scheduledJSON = data
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO workflow_activity (run_id, kind, success, outcome, started_at, finished_at, trends_found, content_generated, posts_scheduled, errors, scheduled)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (run_id) DO UPDATE
SET success = EXCLUDED.success,
    outcome = EXCLUDED.outcome,
    finished_at = EXCLUDED.finished_at,
    trends_found = EXCLUDED.trends_found,
    content_generated = EXCLUDED.content_generated,
    posts_scheduled = EXCLUDED.posts_scheduled,
    errors = EXCLUDED.errors,
    scheduled = EXCLUDED.scheduled
`, summary.RunID, summary.Kind, summary.Success, summary.Outcome, summary.StartedAt.UTC(), summary.FinishedAt.UTC(), summary.TrendsFound, summary.Generated, summary.PostsScheduled, errorsJSON, scheduledJSON)
	metrics.ObserveNetworkRequest("postgres", "workflow_activity_upsert", "workflow_activity", start, err)
	return err
}

// ListRunHistory возвращает историю запусков начиная с указанного момента.
func (p *Postgres) ListRunHistory(ctx context.Context, since time.Time, limit int) ([]domain.RunSummary, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT run_id, kind, success, outcome, started_at, finished_at, trends_found, content_generated, posts_scheduled, errors, scheduled
FROM workflow_activity
WHERE started_at >= $1
ORDER BY started_at DESC
LIMIT $2
`, since.UTC(), limit)
	metrics.ObserveNetworkRequest("postgres", "workflow_activity_list", "workflow_activity", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.RunSummary
	for rows.Next() {
		var (
			summary       domain.RunSummary
			errorsJSON    []byte
			scheduledJSON []byte
		)
		if err := rows.Scan(&summary.RunID, &summary.Kind, &summary.Success, &summary.Outcome, &summary.StartedAt, &summary.FinishedAt, &summary.TrendsFound, &summary.Generated, &summary.PostsScheduled, &errorsJSON, &scheduledJSON); err != nil {
			return nil, err
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &summary.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal errors: %w", err)
			}
		}
		if len(scheduledJSON) > 0 {
			if err := json.Unmarshal(scheduledJSON, &summary.Scheduled); err != nil {
				return nil, fmt.Errorf("unmarshal scheduled: %w", err)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
