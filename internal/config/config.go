package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// StorageTimeout bounds every ledger round-trip; on expiry the operation
	// fails as retryable with no partial mutation.
	StorageTimeout time.Duration

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string

	JWTSecret     string
	JWTExpiration time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	storageTimeoutSecs, _ := strconv.Atoi(getEnv("STORAGE_TIMEOUT_SECONDS", "5"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parking"),
		DBPassword: getEnv("DB_PASSWORD", "parking"),
		DBName:     getEnv("DB_NAME", "parking_billing"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		StorageTimeout: time.Duration(storageTimeoutSecs) * time.Second,

		AWSRegion:        getEnv("AWS_REGION", "ap-southeast-1"),
		SQSEventQueueURL: getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  getEnv("IOT_MQTT_ENDPOINT", ""),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: time.Duration(jwtExpHours) * time.Hour,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable '%s' is not set, using default: '%s'", key, fallback)
	return fallback
}
