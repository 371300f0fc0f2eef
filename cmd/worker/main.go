package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/adapters/news"
	"linkedin-pipeline/internal/adapters/repo"
	"linkedin-pipeline/internal/adapters/textservice"
	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/infra/cache"
	"linkedin-pipeline/internal/infra/config"
	"linkedin-pipeline/internal/infra/db"
	loginfra "linkedin-pipeline/internal/infra/log"
	"linkedin-pipeline/internal/infra/metrics"
	openaiinfra "linkedin-pipeline/internal/infra/openai"
	"linkedin-pipeline/internal/infra/queue"
	"linkedin-pipeline/internal/usecase/content"
	"linkedin-pipeline/internal/usecase/schedule"
	"linkedin-pipeline/internal/usecase/trends"
	"linkedin-pipeline/internal/usecase/workflow"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv, "worker")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	locker := cache.NewRedisLocker(rdb)

	jobs, err := newQueue(cfg, rdb)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: очередь недоступна")
	}

	text := newTextService(cfg, logger)
	pause := time.Duration(cfg.Pipeline.CallPauseSeconds) * time.Second

	engine := workflow.NewEngine(workflow.Deps{
		Analyzer:  trends.NewService(news.NewRSSSource(nil, nil, logger), text, logger.With().Str("component", "trends").Logger(), pause),
		Generator: content.NewGenerator(text, repoAdapter, logger.With().Str("component", "content").Logger()),
		Planner:   schedule.NewPlanner(nil),
		TrendRepo: repoAdapter,
		PostRepo:  repoAdapter,
		Activity:  repoAdapter,
		Locker:    locker,
		Logger:    logger.With().Str("component", "workflow").Logger(),
		Pause:     pause,
	})

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	logger.Info().Str("queue_driver", cfg.Queue.Driver).Msg("worker: старт")

	consumer := workflow.NewConsumer(jobs, engine, logger)
	if err := consumer.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: потребитель очереди остановлен с ошибкой")
	}
	logger.Info().Msg("worker: остановка")
}

func newTextService(cfg config.AppConfig, logger zerolog.Logger) domain.TextService {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn().Msg("worker: OPENAI_API_KEY не задан, используется эвристический текстовый сервис")
		return textservice.NewSimple()
	}
	client := openaiinfra.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, 60*time.Second)
	return textservice.NewOpenAI(client, cfg.OpenAI.Model, 60*time.Second)
}

func newQueue(cfg config.AppConfig, rdb *redis.Client) (domain.WorkflowQueue, error) {
	if cfg.Queue.Driver == "rabbitmq" {
		return queue.NewRabbitWorkflowQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
	}
	return queue.NewRedisWorkflowQueue(rdb, cfg.Queue.Key), nil
}
