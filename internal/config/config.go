package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DefaultLocale string
	Timezone      string

	MattermostURL          string
	LeaveBotToken          string
	MattermostWebhookToken string

	RecordBackend    string // mongo, file or memory
	MongoURI         string
	MongoDB          string
	LeaveRecordsFile string
	LeaveRecordsSeed string
	LeaveCap         int

	StateBackend  string // redis or memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StateTTL      time.Duration
	ProfileTTL    time.Duration // zero keeps profiles forever

	Recognizer   string // luis, openai or keyword
	LUISEndpoint string
	LUISAppID    string
	LUISKey      string
	OpenAIKey    string
	OpenAIModel  string

	EventsDriver string // nats, kafka or none
	NATSURL      string
	NATSSubject  string
	KafkaBrokers []string
	KafkaTopic   string

	HolidaysFile string

	RateLimitPerSecond float64
	RateLimitBurst     int
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3978"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en-US"),
		Timezone:      getEnv("TZ", "Local"),

		MattermostURL:          strings.TrimRight(getEnv("MATTERMOST_URL", "http://localhost:8065"), "/"),
		LeaveBotToken:          getEnv("LEAVE_BOT_TOKEN", ""),
		MattermostWebhookToken: getEnv("MATTERMOST_WEBHOOK_TOKEN", ""),

		RecordBackend:    getEnv("RECORD_BACKEND", "file"),
		MongoURI:         getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGODB_DATABASE", "leavebot"),
		LeaveRecordsFile: getEnv("LEAVE_RECORDS_FILE", "resources/user_leave_record.json"),
		LeaveRecordsSeed: getEnv("LEAVE_RECORDS_SEED", ""),
		LeaveCap:         getIntEnv("LEAVE_CAP", 27),

		StateBackend:  getEnv("STATE_BACKEND", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		StateTTL:      getDurationEnv("STATE_TTL", 24*time.Hour),
		ProfileTTL:    getDurationEnv("PROFILE_TTL", 0),

		Recognizer:   getEnv("RECOGNIZER", "keyword"),
		LUISEndpoint: strings.TrimRight(getEnv("LUIS_ENDPOINT", ""), "/"),
		LUISAppID:    getEnv("LUIS_APP_ID", ""),
		LUISKey:      getEnv("LUIS_KEY", ""),
		OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		EventsDriver: getEnv("EVENTS_DRIVER", "none"),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:  getEnv("NATS_SUBJECT", "leave.submitted"),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "leave-submitted"),

		HolidaysFile: getEnv("HOLIDAYS_FILE", ""),

		RateLimitPerSecond: getFloatEnv("RATE_LIMIT_PER_SECOND", 2),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 5),
	}
}

// Location resolves Timezone, falling back to the process zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
