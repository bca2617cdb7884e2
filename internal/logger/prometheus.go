package logger

import (
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok {
		errorType = "unknown"
	}
	source, ok := entry.Data[SourceField].(string)
	if !ok {
		source = "none"
	}

	metrics.ErrorsCounter.WithLabelValues(errorType, source).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

func addPrometheusHook() {
	log.AddHook(&prometheusHook{})
	log.Debug("Prometheus error counting enabled")
}
