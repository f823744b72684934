package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Cache    CacheConfig
	Mutation MutationConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Port       string
	Env        string
	InstanceID string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CacheConfig holds the query cache freshness windows.
type CacheConfig struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

type MutationConfig struct {
	Serialize   bool
	LockBackend string
	LockTTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicEnrollments string
	ConsumerGroup    string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type NotifyConfig struct {
	History int
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// lockTTLMargin is how much longer a redis lock must live than the slowest
// backend request it guards.
const lockTTLMargin = 15 * time.Second

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	backendTimeout := parsePositiveInt(getEnv("BACKEND_TIMEOUT_SECONDS", "30"), 30)
	history := parsePositiveInt(getEnv("TOAST_HISTORY", "50"), 50)
	instanceID := getEnv("INSTANCE_ID", uuid.NewString())

	cfg := &Config{
		Server: ServerConfig{
			Port:       getEnv("PORT", "8080"),
			Env:        getEnv("ENV", "development"),
			InstanceID: instanceID,
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000/api/v1"), "/"),
			Timeout: time.Duration(backendTimeout) * time.Second,
		},
		Cache: CacheConfig{
			StaleTime: parseDuration(getEnv("CACHE_STALE_TIME", "30s"), 30*time.Second),
			GCTime:    parseDuration(getEnv("CACHE_GC_TIME", "5m"), 5*time.Minute),
		},
		Mutation: MutationConfig{
			Serialize:   parseBool(getEnv("MUTATION_SERIALIZE", "true"), true),
			LockBackend: strings.ToLower(getEnv("MUTATION_LOCK_BACKEND", LockBackendLocal)),
			LockTTL:     parseDuration(getEnv("MUTATION_LOCK_TTL", "45s"), 45*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Enabled:          parseBool(getEnv("KAFKA_ENABLED", "false"), false),
			Brokers:          strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicEnrollments: getEnv("KAFKA_TOPIC_ENROLLMENT_EVENTS", "enrollment-events"),
			ConsumerGroup:    getEnv("KAFKA_CONSUMER_GROUP", "portal-"+instanceID),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Notify: NotifyConfig{
			History: history,
		},
	}

	if minTTL := cfg.Backend.Timeout + lockTTLMargin; cfg.Mutation.LockTTL < minTTL {
		log.Printf("MUTATION_LOCK_TTL %s does not outlast the backend timeout, using %s", cfg.Mutation.LockTTL, minTTL)
		cfg.Mutation.LockTTL = minTTL
	}

	log.Printf("Config loaded: env=%s, port=%s, backend=%s", cfg.Server.Env, cfg.Server.Port, cfg.Backend.BaseURL)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func parsePositiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
