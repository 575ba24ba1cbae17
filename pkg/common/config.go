package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ServerConfig is everything cmd/server reads from the environment (after godotenv.Load).
type ServerConfig struct {
	DBType string
	DBPath string

	HttpHostPort string
	GrpcHostPort string

	PollRate  float64
	PollBurst int

	JWTSecret string

	PointsOrderCreated   int
	PointsOrderCompleted int
	PointsReview         int
}

func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		DBType:       getEnv(EnvKeyRentalDBType, "file"),
		DBPath:       getEnv(EnvKeyRentalDbPath, "rental.db"),
		HttpHostPort: strings.TrimSpace(getEnv(EnvKeyRentalHttpHostPort, ":1080")),
		GrpcHostPort: strings.TrimSpace(getEnv(EnvKeyRentalGrpcHostPort, "")),
		JWTSecret:    getEnv(EnvKeyRentalJWTSecret, ""),
	}

	var err error
	if cfg.PollRate, err = getEnvFloat(EnvKeyRentalPollRate, 2); err != nil {
		return nil, err
	}
	if cfg.PollBurst, err = getEnvInt(EnvKeyRentalPollBurst, 5); err != nil {
		return nil, err
	}
	if cfg.PointsOrderCreated, err = getEnvInt(EnvKeyRentalPointsOrderCreated, 10); err != nil {
		return nil, err
	}
	if cfg.PointsOrderCompleted, err = getEnvInt(EnvKeyRentalPointsOrderCompleted, 20); err != nil {
		return nil, err
	}
	if cfg.PointsReview, err = getEnvInt(EnvKeyRentalPointsReview, 15); err != nil {
		return nil, err
	}

	switch cfg.DBType {
	case "file", "memory":
	default:
		return nil, fmt.Errorf("unknown %s: %q, should be file or memory", EnvKeyRentalDBType, cfg.DBType)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s is not set, bearer tokens can not be verified", EnvKeyRentalJWTSecret)
	}

	return cfg, nil
}

// String masks the secret.
func (c *ServerConfig) String() string {
	return fmt.Sprintf("ServerConfig{DB: %s(%s), HTTP: %s, gRPC: %q, Poll: %v/%v, JWT: ***}",
		c.DBType, c.DBPath, c.HttpHostPort, c.GrpcHostPort, c.PollRate, c.PollBurst)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float64 for %s: %w", key, err)
		}
		return floatVal, nil
	}
	return defaultVal, nil
}
