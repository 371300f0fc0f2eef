package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"linkedin-pipeline/internal/adapters/repo"
	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/infra/config"
	"linkedin-pipeline/internal/infra/db"
	httpinfra "linkedin-pipeline/internal/infra/http"
	loginfra "linkedin-pipeline/internal/infra/log"
	"linkedin-pipeline/internal/infra/metrics"
	"linkedin-pipeline/internal/infra/queue"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	jobs, err := newQueue(cfg, rdb)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: очередь недоступна")
	}

	srv := httpinfra.NewServer(logger)
	r := srv.Router

	r.Post("/api/v1/automation/run-now", func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		var body runNowRequest
		if req.ContentLength > 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		runCfg := pipelineConfig(cfg)
		if body.TrendsOnly {
			runCfg.Kind = domain.RunKindTrends
			runCfg.TrendsOnly = true
		}
		job := domain.WorkflowJob{
			ID:          uuid.NewString(),
			Config:      runCfg,
			Cause:       domain.RunCauseManual,
			RequestedAt: time.Now().UTC(),
		}
		if err := jobs.Enqueue(req.Context(), job); err != nil {
			logger.Error().Err(err).Msg("api: не удалось поставить задачу")
			writeError(w, http.StatusInternalServerError, "failed to enqueue run")
			return
		}
		writeJSONStatus(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": "queued"})
	})

	r.Post("/api/v1/automation/schedule-custom", func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		var body customRunRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		runCfg := pipelineConfig(cfg)
		runCfg.Kind = domain.RunKindCustom
		if len(body.Sources) > 0 {
			runCfg.Sources = body.Sources
		}
		if len(body.Tones) > 0 {
			tones := make([]domain.Tone, 0, len(body.Tones))
			for _, raw := range body.Tones {
				tone := domain.Tone(raw)
				if !tone.Valid() {
					writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown tone %q", raw))
					return
				}
				tones = append(tones, tone)
			}
			runCfg.Tones = tones
		}
		if body.MaxPosts > 0 {
			runCfg.MaxPostsPerDay = body.MaxPosts
		}

		job := domain.WorkflowJob{
			ID:          uuid.NewString(),
			Config:      runCfg,
			Cause:       domain.RunCauseCustom,
			RequestedAt: time.Now().UTC(),
		}
		if body.DelayMinutes > 0 {
			job.RunAt = job.RequestedAt.Add(time.Duration(body.DelayMinutes) * time.Minute)
		}
		if err := jobs.Enqueue(req.Context(), job); err != nil {
			logger.Error().Err(err).Msg("api: не удалось поставить задачу")
			writeError(w, http.StatusInternalServerError, "failed to enqueue run")
			return
		}
		resp := map[string]string{"job_id": job.ID, "status": "queued"}
		if !job.RunAt.IsZero() {
			resp["run_at"] = job.RunAt.Format(time.RFC3339)
		}
		writeJSONStatus(w, http.StatusAccepted, resp)
	})

	r.Get("/api/v1/automation/history", func(w http.ResponseWriter, req *http.Request) {
		days := queryInt(req, "days", 7)
		since := time.Now().UTC().AddDate(0, 0, -days)
		history, err := repoAdapter.ListRunHistory(req.Context(), since, queryInt(req, "limit", 50))
		if err != nil {
			logger.Error().Err(err).Msg("api: история запусков недоступна")
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		writeJSON(w, map[string]any{"history": history})
	})

	r.Get("/api/v1/trends", func(w http.ResponseWriter, req *http.Request) {
		trends, err := repoAdapter.ListActiveTrends(req.Context(), queryInt(req, "limit", 20))
		if err != nil {
			logger.Error().Err(err).Msg("api: тренды недоступны")
			writeError(w, http.StatusInternalServerError, "failed to load trends")
			return
		}
		writeJSON(w, map[string]any{"trends": toTrendViews(trends)})
	})

	r.Get("/api/v1/posts/scheduled", func(w http.ResponseWriter, req *http.Request) {
		posts, err := repoAdapter.ListScheduledPosts(req.Context(), queryInt(req, "limit", 50))
		if err != nil {
			logger.Error().Err(err).Msg("api: запланированные посты недоступны")
			writeError(w, http.StatusInternalServerError, "failed to load scheduled posts")
			return
		}
		writeJSON(w, map[string]any{"posts": posts})
	})

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("api: старт")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type runNowRequest struct {
	TrendsOnly bool `json:"trends_only"`
}

type customRunRequest struct {
	Sources      []string `json:"sources"`
	Tones        []string `json:"tones"`
	MaxPosts     int      `json:"max_posts"`
	DelayMinutes int      `json:"delay_minutes"`
}

type trendView struct {
	ID             int64     `json:"id"`
	Topic          string    `json:"topic"`
	Hashtags       []string  `json:"hashtags"`
	RelevanceScore float64   `json:"relevance_score"`
	MentionCount   int       `json:"mention_count"`
	Source         string    `json:"source"`
	DetectedAt     time.Time `json:"detected_at"`
}

func toTrendViews(trends []domain.Trend) []trendView {
	views := make([]trendView, 0, len(trends))
	for _, t := range trends {
		views = append(views, trendView{
			ID:             t.ID,
			Topic:          t.Topic,
			Hashtags:       t.Hashtags,
			RelevanceScore: t.RelevanceScore,
			MentionCount:   t.MentionCount,
			Source:         t.Source,
			DetectedAt:     t.DetectedAt,
		})
	}
	return views
}

func pipelineConfig(cfg config.AppConfig) domain.RunConfig {
	tones := make([]domain.Tone, 0, len(cfg.Pipeline.Tones))
	for _, raw := range cfg.Pipeline.Tones {
		tones = append(tones, domain.Tone(raw))
	}
	return domain.RunConfig{
		Kind:           domain.RunKindDaily,
		Sources:        cfg.Pipeline.Sources,
		MaxTrends:      cfg.Pipeline.MaxTrends,
		MaxPostsPerDay: cfg.Pipeline.MaxPostsPerDay,
		Tones:          tones,
		FilterDupes:    cfg.Pipeline.FilterDuplicates,
		LookbackDays:   cfg.Pipeline.LookbackDays,
		HoursBack:      cfg.Pipeline.HoursBack,
	}
}

func newQueue(cfg config.AppConfig, rdb *redis.Client) (domain.WorkflowQueue, error) {
	if cfg.Queue.Driver == "rabbitmq" {
		return queue.NewRabbitWorkflowQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
	}
	return queue.NewRedisWorkflowQueue(rdb, cfg.Queue.Key), nil
}

func queryInt(req *http.Request, name string, fallback int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
