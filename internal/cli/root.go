package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qa-live-service/internal/config"
)

const defaultConfigPath = "config/config.yaml"

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "quiz-service",
		Short:        "Live question broadcasting and answer collection for groups",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("port", "", "port to listen on (overrides server.port)")
	flags.String("config", defaultConfigPath, "path to YAML config")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	cmd.AddCommand(NewStartCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	return cmd
}

// settings are the values resolved from flags and environment before the config file is read.
type settings struct {
	Port       string
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// resolveSettings binds a command's flags and environment to a fresh viper instance.
// PORT and CONFIG_PATH are honoured next to their QA_ prefixed names.
func resolveSettings(cmd *cobra.Command) settings {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "QA_PORT", "PORT")
	_ = v.BindEnv("config", "QA_CONFIG", "CONFIG_PATH")

	return settings{
		Port:       v.GetString("port"),
		ConfigPath: v.GetString("config"),
		LogLevel:   v.GetString("log-level"),
		LogFormat:  v.GetString("log-format"),
	}
}

// loadConfig reads the config file and installs the default logger. The default
// path may be missing; an explicitly chosen one may not.
func loadConfig(cmd *cobra.Command) (settings, config.Config, *slog.Logger, error) {
	s := resolveSettings(cmd)
	var (
		cfg config.Config
		err error
	)
	if s.ConfigPath == defaultConfigPath {
		cfg, err = config.LoadOptional(s.ConfigPath)
	} else {
		cfg, err = config.Load(s.ConfigPath)
	}
	if err != nil {
		return s, cfg, nil, err
	}

	level := firstSet(s.LogLevel, cfg.Logging.Level)
	format := firstSet(s.LogFormat, cfg.Logging.Format)
	logger := setupLogging(level, format)
	return s, cfg, logger, nil
}

func setupLogging(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	return logger
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
