package domain

import "time"

// Tone задаёт тональность генерируемого поста.
type Tone string

const (
	// ToneProfessional — деловой тон для руководителей и экспертов.
	ToneProfessional Tone = "professional"
	// ToneCasual — разговорный, но профессиональный тон.
	ToneCasual Tone = "casual"
	// ToneTechnical — технический тон для разработчиков.
	ToneTechnical Tone = "technical"
)

// Valid проверяет, что тональность входит в фиксированный набор.
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneTechnical:
		return true
	}
	return false
}

// PostStatus описывает жизненный цикл поста.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPosted    PostStatus = "posted"
	PostStatusFailed    PostStatus = "failed"
)

// Article представляет статью из внешнего новостного источника.
type Article struct {
	Title       string
	URL         string
	Summary     string
	Author      string
	PublishedAt time.Time
	Source      string
	Tags        []string
}

// TopicMention — одно упоминание темы, извлечённое из статьи.
// Первое упоминание темы задаёт её каноничные хэштеги и статью-источник.
type TopicMention struct {
	Topic    string
	Hashtags []string
	Article  Article
	Source   string
}

// Trend описывает ранжированную тему с метаданными релевантности.
// RelevanceScore всегда ограничен диапазоном [0,1].
type Trend struct {
	ID             int64
	Topic          string
	Hashtags       []string
	RelevanceScore float64
	MentionCount   int
	Source         string
	SourceTitle    string
	SourceURL      string
	DetectedAt     time.Time
	IsActive       bool
}

// ContentCandidate — один сгенерированный пост для пары тема×тон,
// ожидающий одобрения. Approved всегда выводится из CompositeScore.
type ContentCandidate struct {
	PostID           int64
	Trend            *Trend
	Tone             Tone
	Body             string
	Hashtags         []string
	CharacterCount   int
	ReadabilityScore float64
	EngagementScore  float64
	CompositeScore   float64
	Approved         bool
	CreatedAt        time.Time
}

// ScheduledPost — одобренный пост с назначенным временем публикации.
type ScheduledPost struct {
	PostID    int64
	PublishAt time.Time
	Preview   string
	Status    PostStatus
}

// Stage — этап конвейера воркфлоу.
type Stage string

const (
	StageStart           Stage = "start"
	StageAnalyzeTrends   Stage = "analyze_trends"
	StageFilterTrends    Stage = "filter_trends"
	StageGenerateContent Stage = "generate_content"
	StageReviewContent   Stage = "review_content"
	StageSchedulePosts   Stage = "schedule_posts"
	StageMonitor         Stage = "monitor"
	StageEnd             Stage = "end"
)

// RunConfig задаёт параметры одного запуска конвейера.
type RunConfig struct {
	Kind           string   `validate:"required"`
	Sources        []string `validate:"required,min=1,dive,required"`
	MaxTrends      int      `validate:"min=1,max=50"`
	MaxPostsPerDay int      `validate:"min=1"`
	Tones          []Tone   `validate:"required,min=1"`
	FilterDupes    bool
	LookbackDays   int
	HoursBack      int
	TrendsOnly     bool
}

// WorkflowRun хранит состояние одного запуска. Принадлежит ровно одному
// выполнению движка от старта до терминального этапа.
type WorkflowRun struct {
	RunID      string
	StartedAt  time.Time
	Stage      Stage
	Config     RunConfig
	Trends     []Trend
	Candidates []ContentCandidate
	Scheduled  []ScheduledPost
	Errors     []string
}

// RunSummary — итог запуска, контракт для внешних потребителей.
type RunSummary struct {
	RunID          string          `json:"run_id"`
	Kind           string          `json:"kind"`
	Success        bool            `json:"success"`
	Outcome        string          `json:"outcome"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	TrendsFound    int             `json:"trends_found"`
	Generated      int             `json:"content_generated"`
	PostsScheduled int             `json:"posts_scheduled"`
	Errors         []string        `json:"errors,omitempty"`
	Scheduled      []ScheduledPost `json:"scheduled,omitempty"`
}

// Исходы запуска для RunSummary.Outcome.
const (
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"
	OutcomeEmpty     = "empty"
	OutcomeTrends    = "trends_refreshed"
)
