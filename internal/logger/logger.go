package logger

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/config"
	"github.com/maxaizer/jobs-tracker/pkg/loki"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"path/filepath"
	"time"
)

const ErrorTypeField = "error_type"

const (
	ErrorTypeAmazonApi     = "amazon_api"
	ErrorTypeTheirStackApi = "theirstack_api"
	ErrorTypeBrowser       = "browser"
	ErrorTypeStorage       = "storage"
	ErrorTypeDb            = "db"
	ErrorTypeParse         = "parse"
)

const SourceField = "source"

var (
	logFile    *os.File
	lokiPusher *loki.Pusher
)

func Setup(ctx context.Context, cfg config.LoggerConfig) {

	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	var err error
	logFile, err = os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)

	customFormatter := &log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	}
	log.SetFormatter(customFormatter)

	level := toLogrusLevel(cfg.LogLevel)
	log.SetLevel(level)

	addPrometheusHook()

	if cfg.LokiURL != "" {
		lokiCfg := loki.Config{
			Url:          cfg.LokiURL,
			Username:     cfg.LokiUser,
			Password:     cfg.LokiPassword,
			BatchMaxWait: 2 * time.Second,
			Labels:       map[string]string{"app": cfg.AppName},
		}
		if err = addLokiHook(ctx, lokiCfg, level); err != nil {
			log.WithField(ErrorTypeField, "loki").Errorf("can't enable loki logging: %v", err)
		}
	}
}

func toLogrusLevel(level config.LogLevel) log.Level {
	switch level {
	case config.LevelInfo:
		return log.InfoLevel
	case config.LevelDebug:
		return log.DebugLevel
	case config.LevelWarning:
		return log.WarnLevel
	case config.LevelError:
		return log.ErrorLevel
	case config.LevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

func Cleanup() {
	if lokiPusher != nil {
		lokiPusher.Stop()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}
