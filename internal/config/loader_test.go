package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Storage.Backend, convey.ShouldEqual, config.BackendBadger)
				convey.So(cfg.Durability.Debounce, convey.ShouldEqual, 1200*time.Millisecond)
				convey.So(cfg.Dedupe.TTL, convey.ShouldEqual, 10*time.Minute)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FITREP_LOG_LEVEL", "debug")
			_ = os.Setenv("FITREP_HTTP_ADDR", ":8080")
			_ = os.Setenv("FITREP_STORAGE_BACKEND", "memory")
			_ = os.Setenv("FITREP_DURABILITY_DEBOUNCE", "2s")
			_ = os.Setenv("FITREP_DEDUPE_MAX_ENTRIES", "1000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Storage.Backend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.Durability.Debounce, convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.Dedupe.MaxEntries, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
log_level: warn
http:
  addr: ":9090"
storage:
  backend: memory
  max_bytes: 5242880
durability:
  debounce: 800ms
  interval_floor: 10s
  interval_ceiling: 30s
dedupe:
  ttl: 5m
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FITREP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Storage.Backend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.Storage.MaxBytes, convey.ShouldEqual, int64(5242880))
				convey.So(cfg.Durability.Debounce, convey.ShouldEqual, 800*time.Millisecond)
				convey.So(cfg.Durability.IntervalFloor, convey.ShouldEqual, 10*time.Second)
				convey.So(cfg.Durability.IntervalCeiling, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Dedupe.TTL, convey.ShouldEqual, 5*time.Minute)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
http:
  addr: ":9090"
storage:
  backend: memory
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FITREP_CONFIG", tmpFile)
			_ = os.Setenv("FITREP_HTTP_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Storage.Backend, convey.ShouldEqual, config.BackendMemory)
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FITREP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("FITREP_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an empty listen address", func() {
			_ = os.Setenv("FITREP_HTTP_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown storage backend", func() {
			_ = os.Setenv("FITREP_STORAGE_BACKEND", "redis")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a partial YAML file", func() {
			yamlContent := `
durability:
  retry_attempts: 5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FITREP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Durability.RetryAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Durability.HistoryCapacity, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When a section env key carries further underscores", func() {
			_ = os.Setenv("FITREP_STORAGE_MAX_BYTES", "1048576")
			_ = os.Setenv("FITREP_DURABILITY_RETRY_BASE_DELAY", "250ms")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then only the section separator becomes a dot", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Storage.MaxBytes, convey.ShouldEqual, int64(1048576))
				convey.So(cfg.Durability.RetryBaseDelay, convey.ShouldEqual, 250*time.Millisecond)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"FITREP_CONFIG",
		"FITREP_LOG_LEVEL",
		"FITREP_HTTP_ADDR",
		"FITREP_STORAGE_BACKEND",
		"FITREP_STORAGE_PATH",
		"FITREP_STORAGE_MAX_BYTES",
		"FITREP_DURABILITY_DEBOUNCE",
		"FITREP_DURABILITY_RETRY_ATTEMPTS",
		"FITREP_DURABILITY_RETRY_BASE_DELAY",
		"FITREP_DEDUPE_TTL",
		"FITREP_DEDUPE_MAX_ENTRIES",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "fitrep-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
