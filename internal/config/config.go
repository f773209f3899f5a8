// Package config reads runtime settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Storage string

const (
	StorageMemory   Storage = "memory"
	StoragePostgres Storage = "postgres"
)

type Database struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	Schema   string
}

// DSN renders the pgx connection string.
func (d Database) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.Username, d.Password, d.Host, d.Port, d.Name)
	if d.Schema != "" {
		dsn += "&search_path=" + d.Schema
	}
	return dsn
}

type Admin struct {
	Name     string
	Email    string
	Password string
	// Contact is the messaging address purchase requests are sent to.
	Contact string
}

type Log struct {
	Level string
	File  string
	Dev   bool
}

type Config struct {
	HTTPAddr         string
	Storage          Storage
	Database         Database
	Admin            Admin
	JWTSecret        string
	SessionTTL       time.Duration
	OrderPrefix      string
	OrderMaxAttempts int
	PublicURL        string
	ReminderInterval time.Duration
	ReminderAfter    time.Duration
	CORSOrigins      []string
	Seed             bool
	Log              Log
}

func Load() (*Config, error) {
	l := loader{}
	cfg := &Config{
		HTTPAddr: l.str("DIGIMART_HTTP_ADDR", ":8080"),
		Storage:  Storage(strings.ToLower(l.str("DIGIMART_STORAGE", string(StorageMemory)))),
		Database: Database{
			Host:     l.str("BLUEPRINT_DB_HOST", "localhost"),
			Port:     l.str("BLUEPRINT_DB_PORT", "5432"),
			Name:     l.str("BLUEPRINT_DB_DATABASE", "digimart"),
			Username: l.str("BLUEPRINT_DB_USERNAME", "postgres"),
			Password: l.str("BLUEPRINT_DB_PASSWORD", ""),
			Schema:   l.str("BLUEPRINT_DB_SCHEMA", "public"),
		},
		Admin: Admin{
			Name:     l.str("DIGIMART_ADMIN_NAME", "Main Admin"),
			Email:    l.str("DIGIMART_ADMIN_EMAIL", "admin@digimart.pro"),
			Password: l.str("DIGIMART_ADMIN_PASSWORD", ""),
			Contact:  l.str("DIGIMART_ADMIN_CONTACT", "923264236393"),
		},
		JWTSecret:        l.str("DIGIMART_JWT_SECRET", "change-me-in-production"),
		SessionTTL:       l.duration("DIGIMART_SESSION_TTL", 24*time.Hour),
		OrderPrefix:      strings.ToUpper(l.str("DIGIMART_ORDER_PREFIX", "DIGI")),
		OrderMaxAttempts: l.num("DIGIMART_ORDER_MAX_ATTEMPTS", 10),
		PublicURL:        strings.TrimRight(l.str("DIGIMART_PUBLIC_URL", "http://localhost:8080"), "/"),
		ReminderInterval: l.duration("DIGIMART_REMINDER_INTERVAL", time.Minute),
		ReminderAfter:    l.duration("DIGIMART_REMINDER_AFTER", 30*time.Minute),
		CORSOrigins:      l.list("DIGIMART_CORS_ORIGINS"),
		Seed:             l.flag("DIGIMART_SEED", true),
		Log: Log{
			Level: l.str("DIGIMART_LOG_LEVEL", "info"),
			File:  l.str("DIGIMART_LOG_FILE", ""),
			Dev:   l.flag("DIGIMART_LOG_DEV", false),
		},
	}
	if l.err != nil {
		return nil, l.err
	}
	if cfg.Storage != StorageMemory && cfg.Storage != StoragePostgres {
		return nil, fmt.Errorf("DIGIMART_STORAGE: unknown storage %q", cfg.Storage)
	}
	if cfg.OrderMaxAttempts < 1 {
		return nil, fmt.Errorf("DIGIMART_ORDER_MAX_ATTEMPTS: must be at least 1")
	}
	return cfg, nil
}

// loader keeps the first parse error so Load can report it once.
type loader struct {
	err error
}

func (l *loader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (l *loader) num(key string, def int) int {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, err)
		return def
	}
	return n
}

func (l *loader) flag(key string, def bool) bool {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, err)
		return def
	}
	return b
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, err)
		return def
	}
	return d
}

func (l *loader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(l.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%s: %w", key, err)
	}
}
