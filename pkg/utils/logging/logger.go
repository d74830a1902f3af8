package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnvVar overrides the console log level, e.g. COLONY_LOG_LEVEL=debug
const LevelEnvVar = "COLONY_LOG_LEVEL"

// Options controls where the logger writes
type Options struct {
	Env string

	// Dir holds the JSON log files, defaults to "logs"
	Dir string

	ConsoleLevel zapcore.Level

	// Console defaults to stdout
	Console zapcore.WriteSyncer

	// Now stamps the log file name, defaults to time.Now
	Now func() time.Time
}

// InitLogger initializes a zap logger with console and file outputs.
// env is used to prefix the log file name.
func InitLogger(env string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := os.Getenv(LevelEnvVar); raw != "" {
		parsed, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", LevelEnvVar, err)
		}
		level = parsed
	}

	return New(Options{Env: env, ConsoleLevel: level})
}

// New builds a logger that tees a colored console core with a JSON file core.
// The file always records at Debug.
func New(opts Options) (*zap.Logger, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	console := opts.Console
	if console == nil {
		console = zapcore.AddSync(os.Stdout)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	path := filepath.Join(dir, logFileName(opts.Env, now()))
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileConfig := zap.NewProductionEncoderConfig()
	fileConfig.TimeKey = "timestamp"
	fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), console, opts.ConsoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(logFile), zapcore.DebugLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if opts.Env != "" {
		logger = logger.With(zap.String("env", opts.Env))
	}

	return logger, nil
}

func logFileName(env string, t time.Time) string {
	if env == "" {
		env = "colony"
	}
	return fmt.Sprintf("%s_%s.log", env, t.Format("2006-01-02_15-04-05"))
}
