package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	OpenAI struct {
		APIKey  string `envconfig:"OPENAI_API_KEY"`
		Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		BaseURL string `envconfig:"OPENAI_BASE_URL"`
	} `envconfig:""`

	Pipeline struct {
		Sources          []string `envconfig:"PIPELINE_SOURCES" default:"techcrunch"`
		MaxTrends        int      `envconfig:"PIPELINE_MAX_TRENDS" default:"5"`
		MaxPostsPerDay   int      `envconfig:"PIPELINE_MAX_POSTS_PER_DAY" default:"3"`
		Tones            []string `envconfig:"PIPELINE_TONES" default:"professional,casual"`
		FilterDuplicates bool     `envconfig:"FILTER_DUPLICATES" default:"false"`
		LookbackDays     int      `envconfig:"PIPELINE_LOOKBACK_DAYS" default:"7"`
		HoursBack        int      `envconfig:"PIPELINE_HOURS_BACK" default:"24"`
		CallPauseSeconds int      `envconfig:"PIPELINE_CALL_PAUSE_SECONDS" default:"1"`
	} `envconfig:""`

	Schedule struct {
		DailyHourUTC  int   `envconfig:"SCHEDULE_DAILY_HOUR_UTC" default:"8"`
		TrendHoursUTC []int `envconfig:"SCHEDULE_TREND_HOURS_UTC" default:"8,12,16,20"`
	} `envconfig:""`

	Queue struct {
		Driver  string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Key     string `envconfig:"WORKFLOW_QUEUE_KEY" default:"workflow_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
