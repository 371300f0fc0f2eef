package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	WorkflowRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_runs_total",
		Help: "Количество запусков конвейера по виду и исходу",
	}, []string{"kind", "outcome"})

	WorkflowStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_stage_seconds",
		Help:    "Длительность этапов конвейера",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	TrendsFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trends_found_total",
		Help: "Количество трендов, прошедших ранжирование",
	})

	CandidatesApprovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_candidates_total",
		Help: "Количество кандидатов контента по результату ревью",
	}, []string{"verdict"})

	PostsScheduledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_scheduled_total",
		Help: "Количество постов, получивших время публикации",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		WorkflowRunsTotal,
		WorkflowStageSeconds,
		TrendsFoundTotal,
		CandidatesApprovedTotal,
		PostsScheduledTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveRun учитывает завершившийся запуск конвейера.
func ObserveRun(kind, outcome string) {
	WorkflowRunsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveStage учитывает длительность этапа.
func ObserveStage(stage string, start time.Time) {
	WorkflowStageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveNetworkRequest учитывает сетевой вызов внешнего сервиса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	status := strconv.FormatBool(err == nil)
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration учитывает генерацию LLM и расход токенов.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}
