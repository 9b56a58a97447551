package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/upshot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RetryDelayMS, convey.ShouldEqual, 3000)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "file")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("UPSHOT_ADDR", ":8080")
			_ = os.Setenv("UPSHOT_BASE_URL", "https://img.example.com/shots/")
			_ = os.Setenv("UPSHOT_RETRY_DELAY_MS", "250")
			_ = os.Setenv("UPSHOT_STORE_BACKEND", "redis")
			_ = os.Setenv("UPSHOT_REDIS_ADDR", "cache:6379")
			_ = os.Setenv("UPSHOT_REDIS_DB", "2")
			_ = os.Setenv("UPSHOT_WRITER_QUEUE_SIZE", "64")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BaseURL, convey.ShouldEqual, "https://img.example.com/shots/")
				convey.So(cfg.RetryDelayMS, convey.ShouldEqual, 250)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendRedis)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.WriterQueueSize, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
base_url: "https://files.example.org/"
store_backend: sqlite
sqlite_dsn: "/var/lib/upshot/hits.db"
log_format: json
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("UPSHOT_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.BaseURL, convey.ShouldEqual, "https://files.example.org/")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendSQLite)
				convey.So(cfg.SQLiteDSN, convey.ShouldEqual, "/var/lib/upshot/hits.db")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.RetryDelayMS, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
retry_delay_ms: 1000
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("UPSHOT_CONFIG", tmpFile)
			_ = os.Setenv("UPSHOT_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RetryDelayMS, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("UPSHOT_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("UPSHOT_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("UPSHOT_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("UPSHOT_STORE_BACKEND", "mongo")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "mongo")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When selecting postgres without a DSN", func() {
			_ = os.Setenv("UPSHOT_STORE_BACKEND", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should require postgres_dsn", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres_dsn")
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("UPSHOT_RETRY_DELAY_MS", "soon")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a negative retry delay", func() {
			_ = os.Setenv("UPSHOT_RETRY_DELAY_MS", "-1")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"UPSHOT_CONFIG",
		"UPSHOT_ADDR",
		"UPSHOT_BASE_URL",
		"UPSHOT_RETRY_DELAY_MS",
		"UPSHOT_STORE_BACKEND",
		"UPSHOT_REDIS_ADDR",
		"UPSHOT_REDIS_DB",
		"UPSHOT_WRITER_QUEUE_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "upshot-config-*.yaml")
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
