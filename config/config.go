// Package config loads the engine/gateway configuration, mirroring the
// reference OmsConfig.load: sensible defaults, an optional config file, and
// environment overrides, never failing boot on a bad or missing file.
package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds every key consumed at boot (spec.md §6, EXTERNAL INTERFACES).
//
// RunGateway and RunEngine default independently to true, matching
// OmsConfig's split-process knobs, but this module's transport.Bus is an
// in-process ring buffer, not the original's Aeron IPC — running gateway and
// engine as separate flashomsd processes sharing one Bus is not supported.
// The knobs are kept because a single process legitimately wants to run
// engine-only or gateway-only for testing; see DESIGN.md for the full scope
// note.
type Config struct {
	Partitions                    int
	StreamCapacity                int
	GatewayPort                   int
	GatewayBackpressureQueueLimit int
	RunGateway                    bool
	RunEngine                     bool
	MetricsIntervalSecs           int
	MetricsAddr                   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("partitions", 32)
	v.SetDefault("streamCapacity", 4096)
	v.SetDefault("gatewayPort", 7001)
	v.SetDefault("gatewayBackpressureQueueLimit", 4096)
	v.SetDefault("runGateway", true)
	v.SetDefault("runEngine", true)
	v.SetDefault("metricsIntervalSecs", 5)
	v.SetDefault("metricsAddr", ":9090")
}

// Load builds a Config from defaults, then an optional YAML file at path
// (skipped if empty or missing), then FLASHOMS_* environment variables. A
// bad config file is logged and ignored; Load never panics or returns an
// error, matching the reference's "log and proceed with defaults" policy.
func Load(path string, logger *log.Logger) Config {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FLASHOMS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logger.Printf("config: failed to read %s, using defaults: %v", path, err)
		}
	}

	return Config{
		Partitions:                    v.GetInt("partitions"),
		StreamCapacity:                v.GetInt("streamCapacity"),
		GatewayPort:                   v.GetInt("gatewayPort"),
		GatewayBackpressureQueueLimit: v.GetInt("gatewayBackpressureQueueLimit"),
		RunGateway:                    v.GetBool("runGateway"),
		RunEngine:                     v.GetBool("runEngine"),
		MetricsIntervalSecs:           v.GetInt("metricsIntervalSecs"),
		MetricsAddr:                   v.GetString("metricsAddr"),
	}
}
