package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultEndpoint       = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultRetryPeriod    = 600 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogFile        = "homework.log"
	DefaultLogLevel       = "debug"
	DefaultRatePerSec     = 1
)

type Config struct {
	PracticumToken string
	TelegramToken  string
	TelegramChatID string

	Endpoint       string
	RetryPeriod    time.Duration
	RequestTimeout time.Duration
	RatePerSec     int

	LogFile  string
	LogLevel string
}

// Load reads the configuration from the environment, optionally seeded from
// dotenv files. Missing files are ignored, as are missing credentials: those
// are reported by CheckTokens.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		PracticumToken: os.Getenv("PRACTICUM_TOKEN"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		Endpoint:       getEnv("PRACTICUM_ENDPOINT", DefaultEndpoint),
		RetryPeriod:    getSeconds("RETRY_PERIOD", DefaultRetryPeriod),
		RequestTimeout: getSeconds("REQUEST_TIMEOUT", DefaultRequestTimeout),
		RatePerSec:     getInt("TELEGRAM_RATE_PER_SEC", DefaultRatePerSec),
		LogFile:        getEnv("LOG_FILE", DefaultLogFile),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

// CheckTokens reports every required credential that is empty.
func (c *Config) CheckTokens() error {
	tokens := []struct {
		name  string
		value string
	}{
		{"PRACTICUM_TOKEN", c.PracticumToken},
		{"TELEGRAM_TOKEN", c.TelegramToken},
		{"TELEGRAM_CHAT_ID", c.TelegramChatID},
	}

	var missing []string
	for _, t := range tokens {
		if strings.TrimSpace(t.value) == "" {
			missing = append(missing, t.name)
		}
	}

	if len(missing) > 0 {
		return &MissingTokensError{Names: missing}
	}
	return nil
}

// ChatID parses TelegramChatID into the numeric form the Bot API expects.
func (c *Config) ChatID() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(c.TelegramChatID), 10, 64)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getSeconds(key string, fallback time.Duration) time.Duration {
	n := getInt(key, 0)
	if n == 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
