package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/infra/cache"
	"linkedin-pipeline/internal/infra/config"
	loginfra "linkedin-pipeline/internal/infra/log"
	"linkedin-pipeline/internal/infra/queue"
)

// TTL ключей идемпотентности: слот не должен сработать дважды за сутки.
const slotTTL = 23 * time.Hour

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv, "scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	locker := cache.NewRedisLocker(rdb)

	jobs, err := newQueue(cfg, rdb)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: очередь недоступна")
	}

	logger.Info().Int("daily_hour", cfg.Schedule.DailyHourUTC).Ints("trend_hours", cfg.Schedule.TrendHoursUTC).Msg("scheduler: старт")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановка")
			return
		case <-ticker.C:
		}

		now := time.Now().UTC()
		date := now.Format("2006-01-02")

		if now.Hour() == cfg.Schedule.DailyHourUTC {
			key := "schedule:daily:" + date
			if err := locker.Once(ctx, key, slotTTL, func() error {
				return enqueueRun(ctx, jobs, pipelineConfig(cfg), logger)
			}); err != nil {
				logger.Error().Err(err).Str("slot", key).Msg("scheduler: ежедневный запуск не поставлен")
			}
		}

		for _, hour := range cfg.Schedule.TrendHoursUTC {
			if now.Hour() != hour {
				continue
			}
			key := fmt.Sprintf("schedule:trends:%s:%02d", date, hour)
			runCfg := pipelineConfig(cfg)
			runCfg.Kind = domain.RunKindTrends
			runCfg.TrendsOnly = true
			if err := locker.Once(ctx, key, slotTTL, func() error {
				return enqueueRun(ctx, jobs, runCfg, logger)
			}); err != nil {
				logger.Error().Err(err).Str("slot", key).Msg("scheduler: обновление трендов не поставлено")
			}
		}
	}
}

func enqueueRun(ctx context.Context, jobs domain.WorkflowQueue, runCfg domain.RunConfig, logger zerolog.Logger) error {
	job := domain.WorkflowJob{
		ID:          uuid.NewString(),
		Config:      runCfg,
		Cause:       domain.RunCauseScheduled,
		RequestedAt: time.Now().UTC(),
	}
	if err := jobs.Enqueue(ctx, job); err != nil {
		return err
	}
	logger.Info().Str("job_id", job.ID).Str("kind", runCfg.Kind).Msg("scheduler: задача поставлена")
	return nil
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
