// Package config loads the demo gateway's configuration from the
// environment, the way github.com/absmach/magistrala's cmd/auth/main.go
// loads its Config via caarlos0/env struct tags instead of a flags parser.
package config

import (
	"time"

	"github.com/caarlos0/env/v7"
)

// envPrefix groups every variable this module reads under one namespace.
const envPrefix = "OSCORE_GW_"

// GatewayConfig is the demo gateway's full configuration, populated by
// Load. Zero values mean "use envDefault".
type GatewayConfig struct {
	ListenAddr    string        `env:"LISTEN_ADDR"    envDefault:"udp4://:5683"`
	LogLevel      string        `env:"LOG_LEVEL"      envDefault:"info"`
	SenderIDHex   string        `env:"SENDER_ID_HEX"  envDefault:"00"`
	SenderKeyHex  string        `env:"SENDER_KEY_HEX" envDefault:""`
	CommonIVHex   string        `env:"COMMON_IV_HEX"  envDefault:""`
	IDContextHex  string        `env:"ID_CONTEXT_HEX" envDefault:""`
	ReadTimeout   time.Duration `env:"READ_TIMEOUT"   envDefault:"30s"`
	SendTelemetry bool          `env:"SEND_TELEMETRY" envDefault:"false"`
}

// Load parses a GatewayConfig from environment variables prefixed
// OSCORE_GW_, applying envDefault for anything unset.
func Load() (GatewayConfig, error) {
	var cfg GatewayConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return GatewayConfig{}, err
	}
	return cfg, nil
}
