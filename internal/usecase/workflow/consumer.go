package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
)

// Runner выполняет один запуск конвейера по конфигурации задачи.
type Runner interface {
	Run(ctx context.Context, cfg domain.RunConfig) (domain.RunSummary, error)
}

// Consumer читает задачи из очереди и передаёт их движку. Отложенные
// задачи ждут своего времени в отдельной горутине, чтобы не
// задерживать чтение очереди; от параллельного запуска одного вида
// защищает блокировка движка.
type Consumer struct {
	queue  domain.WorkflowQueue
	runner Runner
	log    zerolog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewConsumer создаёт потребителя очереди задач.
func NewConsumer(queue domain.WorkflowQueue, runner Runner, logger zerolog.Logger) *Consumer {
	return &Consumer{
		queue:  queue,
		runner: runner,
		log:    logger,
		now:    time.Now,
	}
}

// Consume обрабатывает задачи до отмены контекста. Перед возвратом
// дожидается завершения отложенных задач, уже снятых с очереди.
func (c *Consumer) Consume(ctx context.Context) error {
	defer c.wg.Wait()

	for {
		job, err := c.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			continue
		}

		if delay := job.RunAt.Sub(c.now()); !job.RunAt.IsZero() && delay > 0 {
			c.log.Info().Str("job_id", job.ID).Dur("delay", delay).Msg("worker: задача отложена")
			c.wg.Add(1)
			go func(job domain.WorkflowJob, delay time.Duration) {
				defer c.wg.Done()
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				c.execute(ctx, job)
			}(job, delay)
			continue
		}

		c.execute(ctx, job)
	}
}

func (c *Consumer) execute(ctx context.Context, job domain.WorkflowJob) {
	c.log.Info().Str("job_id", job.ID).Str("cause", string(job.Cause)).Msg("worker: задача принята")
	summary, err := c.runner.Run(ctx, job.Config)
	switch {
	case errors.Is(err, ErrRunInProgress):
		c.log.Warn().Str("job_id", job.ID).Msg("worker: запуск этого вида уже идёт, задача пропущена")
	case err != nil:
		c.log.Error().Err(err).Str("job_id", job.ID).Msg("worker: запуск отклонён")
	default:
		c.log.Info().Str("job_id", job.ID).Str("run_id", summary.RunID).Str("outcome", summary.Outcome).Msg("worker: задача выполнена")
	}
}
