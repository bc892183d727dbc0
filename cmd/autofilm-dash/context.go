package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rickgao/autofilm-dash/internal/api"
	"github.com/rickgao/autofilm-dash/internal/channel"
	"github.com/rickgao/autofilm-dash/internal/config"
	"github.com/rickgao/autofilm-dash/internal/version"
)

type commandContext struct {
	configFlag *string
	serverFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, serverFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
		jsonFlag:   jsonFlag,
	}
}

// ensureConfig loads the config file once. --server replaces server.url
// before validation.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}

		cfg := config.Default()
		if path != "" {
			loaded, err := config.LoadWithDefaults(path)
			if err != nil {
				c.configErr = err
				return
			}
			cfg = loaded
		}
		if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
			cfg.Server.URL = strings.TrimSpace(*c.serverFlag)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("validate config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger builds the slog logger selected by logging.level and logging.format.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return slog.New(slog.NewTextHandler(w, nil))
	}
	return newLogger(cfg.Logging, w)
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// withClient runs fn with a REST client for the configured server.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(*api.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client := api.NewClient(
		cfg.Server.URL,
		cfg.Server.APIKey,
		api.WithLogger(c.logger(cmd.ErrOrStderr())),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	)
	return fn(client)
}

// newManager builds a channel manager for path on the configured server.
// Heartbeats are sent only when heartbeat is set.
func (c *commandContext) newManager(path string, heartbeat bool, logger *slog.Logger) (*channel.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	url, err := channel.EndpointURL(cfg.Server.URL, path)
	if err != nil {
		return nil, err
	}

	chCfg := channel.Config{
		URL:                  url,
		ReconnectBaseDelay:   cfg.Channel.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Channel.MaxReconnectAttempts,
		WriteTimeout:         cfg.Channel.WriteTimeout,
		HandshakeTimeout:     cfg.Channel.HandshakeTimeout,
	}
	if heartbeat {
		chCfg.HeartbeatInterval = cfg.Channel.HeartbeatInterval
	}

	dialer := channel.NewWSDialer(chCfg)
	dialer.Header = http.Header{}
	dialer.Header.Set("User-Agent", version.UserAgent())
	if cfg.Server.APIKey != "" {
		dialer.Header.Set("X-API-Key", cfg.Server.APIKey)
	}

	return channel.NewManager(chCfg, logger, channel.WithDialer(dialer)), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
