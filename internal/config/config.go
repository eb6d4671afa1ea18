package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	SkipAuth    bool
	Environment string
	AppId       string
	LogFile     string

	MongoURI     string
	DBName       string
	MongoMaxPool int
	CORSOrigins  []string

	// BusinessStore selects where agents, clients, stages and meetings are read from: "mongo" or "postgres".
	BusinessStore string
	PostgresDSN   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EventBus      string // "local" or "kafka"
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	OTelEndpoint  string
	Timezone      string
	Dedup         bool
	MaxRetries    int
	Concurrency   int
	DailySchedule string

	MeetingSchedule  string
	DispatchSchedule string
	DispatchBatch    int
	DispatchLease    time.Duration

	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	MailFrom       string
	SendGridAPIKey string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	SMSDefaultRegion string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "insure-crm-notify"),
		LogFile:     getEnv("LOG_FILE", ""),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "insure-crm"),

		MongoMaxPool: getEnvInt("MONGO_MAX_POOL", 50),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		BusinessStore: getEnv("BUSINESS_STORE", "mongo"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EventBus:      getEnv("EVENT_BUS", "local"),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "crm.domain-events"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "notification-triggers"),
		OTelEndpoint:  getEnv("OTEL_EXPORTER_ENDPOINT", ""),
		Timezone:      getEnv("NOTIFY_TIMEZONE", "Asia/Seoul"),
		Dedup:         getEnv("NOTIFY_DEDUP", "true") == "true",
		MaxRetries:    getEnvInt("NOTIFY_MAX_RETRIES", 3),
		Concurrency:   getEnvInt("TRIGGER_CONCURRENCY", 4),
		DailySchedule: getEnv("DAILY_TRIGGER_SCHEDULE", "0 9 * * *"),

		MeetingSchedule:  getEnv("MEETING_TRIGGER_SCHEDULE", "*/5 * * * *"),
		DispatchSchedule: getEnv("DISPATCH_SCHEDULE", "@every 30s"),
		DispatchBatch:    getEnvInt("DISPATCH_BATCH_SIZE", 100),
		DispatchLease:    getEnvDuration("DISPATCH_LEASE", 2*time.Minute),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		MailFrom:       getEnv("SMTP_FROM", "noreply@insure-crm.local"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		SMSDefaultRegion: getEnv("SMS_DEFAULT_REGION", "KR"),
	}, nil
}

// Location resolves the deployment timezone used for all calendar math.
// Falls back to UTC when the zone database does not know the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown NOTIFY_TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
