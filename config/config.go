package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config 서버 실행에 필요한 환경변수 기반 설정
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"./licensegate.db"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"change-this-secret-in-production"`

	LogDir   string `envconfig:"LOG_DIR" default:"./logs"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AllowNoExpiry가 true이면 만료일이 없는 라이선스(영구 라이선스)도
	// 검증을 통과한다. 기본값 false: 만료일이 없는 키는 항상 valid=false.
	AllowNoExpiry bool `envconfig:"ALLOW_NO_EXPIRY" default:"false"`
}

// Load 환경변수에서 설정을 읽어 검증 후 반환한다.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("LICENSEGATE", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}

	switch strings.ToLower(cfg.DBDriver) {
	case "sqlite", "mysql":
		cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}

	return cfg, nil
}

// Addr 리슨 주소 (":8080" 형식)
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
