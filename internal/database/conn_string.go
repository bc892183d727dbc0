package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/autofilm-dash/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	// URL-encode credentials to handle special characters
	userInfo := url.QueryEscape(cfg.User)
	if cfg.Password != "" {
		userInfo += ":" + url.QueryEscape(cfg.Password)
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
