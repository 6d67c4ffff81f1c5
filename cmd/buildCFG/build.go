package buildCFG

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"alumnihub/internal/mailer"
)

type ServerConfig struct {
	Port    string
	BaseURL string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	server := ServerConfig{
		Port:    cfg.GetString("server.port"),
		BaseURL: cfg.GetString("server.base_url"),
	}
	if server.Port == "" {
		server.Port = "8080"
	}
	if server.BaseURL == "" {
		server.BaseURL = "http://localhost:" + server.Port
	}
	log.Info().Str("port", server.Port).Str("base_url", server.BaseURL).Msg("server config loaded")
	return server
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("database.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("database.master_dsn is not set")
	}

	slaveDSNs := cfg.GetStringSlice("database.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns: cfg.GetInt("database.max_open_conns"),
		MaxIdleConns: cfg.GetInt("database.max_idle_conns"),
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}

	log.Info().Int("slaves", len(slaveDSNs)).Msg("database config loaded")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return rc, fmt.Errorf("rabbit.url is not set")
	}
	if rc.Exchange == "" {
		rc.Exchange = "alumnihub.delayed"
	}
	if rc.Queue == "" {
		rc.Queue = "registration.payment.expiry"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config loaded")
	return rc, nil
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (string, error) {
	secret := cfg.GetString("auth.jwt_secret")
	if secret == "" {
		return "", fmt.Errorf("auth.jwt_secret is not set")
	}
	return secret, nil
}

func BuildSMTPConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	sc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetInt("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
	}
	if sc.Port == 0 {
		sc.Port = 587
	}
	return sc
}
