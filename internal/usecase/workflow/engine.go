package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/infra/metrics"
	"linkedin-pipeline/internal/usecase/content"
	"linkedin-pipeline/internal/usecase/trends"
)

// ErrRunInProgress возвращается, когда запуск того же вида уже выполняется.
var ErrRunInProgress = errors.New("запуск этого вида уже выполняется")

// ErrInvalidConfig возвращается при недопустимых параметрах запуска.
// Единственный класс ошибок, прерывающий запуск до первого этапа.
var ErrInvalidConfig = errors.New("недопустимая конфигурация запуска")

const (
	// Потолок общего числа сгенерированных кандидатов: после него
	// ветка regenerate больше не выбирается и запуск завершается skip.
	retryCeiling = 5

	// Страховка цикла переходов: этапов семь, regenerate ограничен
	// потолком кандидатов, так что лимит недостижим при корректной
	// функции переходов.
	maxTransitions = 50

	previewLength = 100

	lockTTL = 30 * time.Minute
)

// TrendAnalyzer ранжирует темы из настроенных источников.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, sources []string, hoursBack, limit int) ([]domain.Trend, error)
}

// ContentGenerator создаёт кандидата поста для пары тренд×тон.
type ContentGenerator interface {
	Generate(ctx context.Context, trend domain.Trend, tone domain.Tone) (domain.ContentCandidate, error)
}

// SlotPlanner распределяет n публикаций по временным слотам.
type SlotPlanner interface {
	PlanTimes(now time.Time, n int) []time.Time
}

// Engine последовательно проводит один запуск через этапы конвейера.
// Состояние запуска принадлежит движку на время Run и нигде не
// разделяется между запусками.
type Engine struct {
	analyzer  TrendAnalyzer
	generator ContentGenerator
	planner   SlotPlanner
	trendRepo domain.TrendRepo
	postRepo  domain.PostRepo
	activity  domain.ActivityRepo
	locker    domain.RunLocker
	log       zerolog.Logger
	validate  *validator.Validate
	pause     time.Duration
	now       func() time.Time
}

// Deps — зависимости движка. Locker и Activity могут быть nil.
type Deps struct {
	Analyzer  TrendAnalyzer
	Generator ContentGenerator
	Planner   SlotPlanner
	TrendRepo domain.TrendRepo
	PostRepo  domain.PostRepo
	Activity  domain.ActivityRepo
	Locker    domain.RunLocker
	Logger    zerolog.Logger
	// Pause — пауза между внешними вызовами генерации.
	Pause time.Duration
	// Now подменяется в тестах; по умолчанию time.Now.
	Now func() time.Time
}

// NewEngine создаёт движок воркфлоу.
func NewEngine(deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		analyzer:  deps.Analyzer,
		generator: deps.Generator,
		planner:   deps.Planner,
		trendRepo: deps.TrendRepo,
		postRepo:  deps.PostRepo,
		activity:  deps.Activity,
		locker:    deps.Locker,
		log:       deps.Logger,
		validate:  validator.New(),
		pause:     deps.Pause,
		now:       now,
	}
}

// Run выполняет один запуск конвейера и всегда возвращает сводку.
// Ошибка возвращается только для ConfigurationError и занятой
// блокировки; сбои этапов накапливаются в сводке.
func (e *Engine) Run(ctx context.Context, cfg domain.RunConfig) (domain.RunSummary, error) {
	cfg = normalizeConfig(cfg)
	if err := e.validateConfig(cfg); err != nil {
		return domain.RunSummary{Kind: cfg.Kind, Success: false, Errors: []string{err.Error()}}, err
	}

	if e.locker != nil {
		key := "workflow:lock:" + cfg.Kind
		ok, err := e.locker.Acquire(ctx, key, lockTTL)
		if err != nil {
			e.log.Error().Err(err).Str("kind", cfg.Kind).Msg("workflow: сбой захвата блокировки, запуск продолжается")
		} else if !ok {
			return domain.RunSummary{Kind: cfg.Kind, Success: false, Errors: []string{ErrRunInProgress.Error()}}, ErrRunInProgress
		} else {
			defer func() {
				if err := e.locker.Release(context.Background(), key); err != nil {
					e.log.Error().Err(err).Str("kind", cfg.Kind).Msg("workflow: сбой освобождения блокировки")
				}
			}()
		}
	}

	startedAt := e.now().UTC()
	run := &domain.WorkflowRun{
		RunID:     fmt.Sprintf("%s_%s", cfg.Kind, startedAt.Format("20060102_150405")),
		StartedAt: startedAt,
		Stage:     domain.StageStart,
		Config:    cfg,
	}
	e.log.Info().Str("run_id", run.RunID).Msg("workflow: запуск начат")

	generatedTotal := 0
	for i := 0; run.Stage != domain.StageEnd && i < maxTransitions; i++ {
		stageStart := e.now()
		run.Stage = e.step(ctx, run, &generatedTotal)
		metrics.ObserveStage(string(run.Stage), stageStart)
	}

	summary := e.buildSummary(run, generatedTotal)
	metrics.ObserveRun(cfg.Kind, summary.Outcome)
	e.logSummary(ctx, summary)
	return summary, nil
}

// step выполняет текущий этап и возвращает следующий. Единственная
// точка ветвления — решение после review_content.
func (e *Engine) step(ctx context.Context, run *domain.WorkflowRun, generatedTotal *int) domain.Stage {
	switch run.Stage {
	case domain.StageStart:
		return domain.StageAnalyzeTrends

	case domain.StageAnalyzeTrends:
		e.analyzeTrends(ctx, run)
		if run.Config.TrendsOnly {
			return domain.StageEnd
		}
		return domain.StageFilterTrends

	case domain.StageFilterTrends:
		e.filterTrends(ctx, run)
		return domain.StageGenerateContent

	case domain.StageGenerateContent:
		e.generateContent(ctx, run, generatedTotal)
		return domain.StageReviewContent

	case domain.StageReviewContent:
		run.Candidates = content.Review(run.Candidates)
		return e.decide(run, *generatedTotal)

	case domain.StageSchedulePosts:
		e.schedulePosts(ctx, run)
		return domain.StageMonitor

	case domain.StageMonitor:
		// Задел под мониторинг вовлечённости: вычислений нет,
		// этап фиксирует завершение запуска.
		e.log.Debug().Str("run_id", run.RunID).Msg("workflow: мониторинг настроен")
		return domain.StageEnd
	}
	return domain.StageEnd
}

// decide — условный переход после ревью: публиковать, перегенерировать
// или завершить без публикаций.
func (e *Engine) decide(run *domain.WorkflowRun, generatedTotal int) domain.Stage {
	if len(run.Candidates) == 0 {
		return domain.StageEnd
	}
	if content.ApprovedCount(run.Candidates) >= 1 {
		return domain.StageSchedulePosts
	}
	if generatedTotal < retryCeiling {
		e.log.Info().Str("run_id", run.RunID).Int("generated", generatedTotal).Msg("workflow: нет одобренных кандидатов, перегенерация")
		return domain.StageGenerateContent
	}
	return domain.StageEnd
}

func (e *Engine) analyzeTrends(ctx context.Context, run *domain.WorkflowRun) {
	ranked, err := e.analyzer.Analyze(ctx, run.Config.Sources, run.Config.HoursBack, run.Config.MaxTrends)
	if err != nil {
		e.fail(run, fmt.Sprintf("анализ трендов: %v", err))
		return
	}

	stored := make([]domain.Trend, 0, len(ranked))
	for _, trend := range ranked {
		saved, err := e.trendRepo.UpsertTrend(ctx, trend)
		if err != nil {
			e.fail(run, fmt.Sprintf("сохранение тренда %q: %v", trend.Topic, err))
			continue
		}
		stored = append(stored, saved)
	}
	run.Trends = stored
	metrics.TrendsFoundTotal.Add(float64(len(stored)))
	e.log.Info().Str("run_id", run.RunID).Int("trends", len(stored)).Msg("workflow: тренды найдены")
}

func (e *Engine) filterTrends(ctx context.Context, run *domain.WorkflowRun) {
	if len(run.Trends) == 0 {
		e.log.Warn().Str("run_id", run.RunID).Msg("workflow: нет трендов для фильтрации")
		return
	}
	filtered := trends.SortByRelevance(run.Trends, run.Config.MaxPostsPerDay)

	if run.Config.FilterDupes {
		since := e.now().UTC().AddDate(0, 0, -run.Config.LookbackDays)
		covered, err := e.postRepo.ListTrendIDsSince(ctx, since)
		if err != nil {
			e.fail(run, fmt.Sprintf("история постов для фильтра дублей: %v", err))
		} else {
			filtered = trends.FilterCovered(filtered, covered)
		}
	}

	run.Trends = filtered
	e.log.Info().Str("run_id", run.RunID).Int("trends", len(filtered)).Msg("workflow: тренды отфильтрованы")
}

// generateContent проходит декартово произведение тренды×тона.
// Кандидаты этапа заменяют предыдущую партию; общий счётчик партий
// накапливается и ограничивает ветку regenerate.
func (e *Engine) generateContent(ctx context.Context, run *domain.WorkflowRun, generatedTotal *int) {
	pairs := len(run.Trends) * len(run.Config.Tones)
	batch := make([]domain.ContentCandidate, 0, pairs)
	done := 0
	for _, trend := range run.Trends {
		for _, tone := range run.Config.Tones {
			candidate, err := e.generator.Generate(ctx, trend, tone)
			if err != nil {
				e.fail(run, fmt.Sprintf("генерация для темы %q (%s): %v", trend.Topic, tone, err))
			} else {
				batch = append(batch, candidate)
				*generatedTotal++
			}
			// Пауза щадит внешний сервис между вызовами; после
			// последней пары партии ждать нечего.
			done++
			if done < pairs {
				e.sleep(ctx)
			}
		}
	}
	run.Candidates = batch
	e.log.Info().Str("run_id", run.RunID).Int("candidates", len(batch)).Msg("workflow: контент сгенерирован")
}

func (e *Engine) schedulePosts(ctx context.Context, run *domain.WorkflowRun) {
	approved := make([]domain.ContentCandidate, 0, len(run.Candidates))
	for _, c := range run.Candidates {
		if c.Approved {
			approved = append(approved, c)
		}
	}
	metrics.CandidatesApprovedTotal.WithLabelValues("approved").Add(float64(len(approved)))
	metrics.CandidatesApprovedTotal.WithLabelValues("rejected").Add(float64(len(run.Candidates) - len(approved)))

	if len(approved) > run.Config.MaxPostsPerDay {
		approved = approved[:run.Config.MaxPostsPerDay]
	}

	times := e.planner.PlanTimes(e.now(), len(approved))
	for i, candidate := range approved {
		publishAt := times[i]
		if err := e.postRepo.MarkScheduled(ctx, candidate.PostID, publishAt); err != nil {
			e.fail(run, fmt.Sprintf("планирование поста %d: %v", candidate.PostID, err))
			continue
		}
		run.Scheduled = append(run.Scheduled, domain.ScheduledPost{
			PostID:    candidate.PostID,
			PublishAt: publishAt,
			Preview:   preview(candidate.Body),
			Status:    domain.PostStatusScheduled,
		})
	}
	metrics.PostsScheduledTotal.Add(float64(len(run.Scheduled)))
	e.log.Info().Str("run_id", run.RunID).Int("scheduled", len(run.Scheduled)).Msg("workflow: посты запланированы")
}

func (e *Engine) buildSummary(run *domain.WorkflowRun, generatedTotal int) domain.RunSummary {
	outcome := domain.OutcomeSkipped
	switch {
	case run.Config.TrendsOnly:
		outcome = domain.OutcomeTrends
	case len(run.Scheduled) > 0:
		outcome = domain.OutcomePublished
	case len(run.Trends) == 0:
		outcome = domain.OutcomeEmpty
	}
	return domain.RunSummary{
		RunID:          run.RunID,
		Kind:           run.Config.Kind,
		Success:        true,
		Outcome:        outcome,
		StartedAt:      run.StartedAt,
		FinishedAt:     e.now().UTC(),
		TrendsFound:    len(run.Trends),
		Generated:      generatedTotal,
		PostsScheduled: len(run.Scheduled),
		Errors:         run.Errors,
		Scheduled:      run.Scheduled,
	}
}

func (e *Engine) logSummary(ctx context.Context, summary domain.RunSummary) {
	e.log.Info().
		Str("run_id", summary.RunID).
		Str("outcome", summary.Outcome).
		Int("trends", summary.TrendsFound).
		Int("generated", summary.Generated).
		Int("scheduled", summary.PostsScheduled).
		Int("errors", len(summary.Errors)).
		Msg("workflow: запуск завершён")
	if e.activity == nil {
		return
	}
	if err := e.activity.LogRun(ctx, summary); err != nil {
		e.log.Error().Err(err).Str("run_id", summary.RunID).Msg("workflow: сводка не записана в журнал")
	}
}

func (e *Engine) validateConfig(cfg domain.RunConfig) error {
	if err := e.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, tone := range cfg.Tones {
		if !tone.Valid() {
			return fmt.Errorf("%w: неизвестная тональность %q", ErrInvalidConfig, tone)
		}
	}
	return nil
}

func (e *Engine) fail(run *domain.WorkflowRun, msg string) {
	run.Errors = append(run.Errors, msg)
	e.log.Error().Str("run_id", run.RunID).Msg(msg)
}

func (e *Engine) sleep(ctx context.Context) {
	if e.pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.pause):
	}
}

func normalizeConfig(cfg domain.RunConfig) domain.RunConfig {
	if cfg.Kind == "" {
		cfg.Kind = domain.RunKindDaily
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []string{"techcrunch"}
	}
	if cfg.MaxTrends == 0 {
		cfg.MaxTrends = 5
	}
	if cfg.MaxPostsPerDay == 0 {
		cfg.MaxPostsPerDay = 3
	}
	if len(cfg.Tones) == 0 {
		cfg.Tones = []domain.Tone{domain.ToneProfessional, domain.ToneCasual}
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = 7
	}
	if cfg.HoursBack == 0 {
		cfg.HoursBack = 24
	}
	return cfg
}

func preview(body string) string {
	const ellipsis = "..."
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + ellipsis
}
