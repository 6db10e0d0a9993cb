package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger from the log_config block. Output is either
// stdout or a rotating file managed by lumberjack.
func New(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	log.SetOutput(output(cfg))
	return log
}

func output(cfg config.LogConfig) io.Writer {
	if cfg.LogOutput == "" || cfg.LogOutput == "stdout" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogOutput,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}
