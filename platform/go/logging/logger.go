package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines the knobs for building the service logger.
type Config struct {
	// Component identifies the emitting subsystem (e.g., "api-server").
	Component string
	// Level controls the minimum severity ("debug", "info", "warn", "error").
	Level string
	// FluentHost enables shipping every log line to Fluent Bit when non-empty.
	FluentHost string
	FluentPort int
	// FluentTag is the record tag; defaults to Component.
	FluentTag string
}

// NewLogger builds a structured zap logger that emits Google Cloud Logging compatible fields,
// optionally teeing the same JSON records to Fluent Bit.
// The returned close func flushes the Fluent client; it is safe to call when shipping is disabled.
func NewLogger(cfg Config) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level == "" {
		level.SetLevel(zapcore.InfoLevel)
	} else if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    gcpLevelEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	}

	closeFn := func() error { return nil }
	if strings.TrimSpace(cfg.FluentHost) != "" {
		tag := cfg.FluentTag
		if tag == "" {
			tag = cfg.Component
		}
		if tag == "" {
			return nil, nil, fmt.Errorf("fluent tag is required when fluent host is set")
		}

		client, err := fluent.New(fluent.Config{
			FluentHost: cfg.FluentHost,
			FluentPort: cfg.FluentPort,
			Async:      true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create fluent client: %w", err)
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(&fluentWriter{poster: client, tag: tag}),
			level,
		))
		closeFn = client.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if cfg.Component != "" {
		logger = logger.With(zap.String("component", cfg.Component))
	}

	return logger, closeFn, nil
}

type fluentPoster interface {
	Post(tag string, message interface{}) error
}

// fluentWriter decodes each JSON line produced by the encoder and posts it as a Fluent record.
type fluentWriter struct {
	poster fluentPoster
	tag    string
}

func (w *fluentWriter) Write(p []byte) (int, error) {
	record := make(map[string]interface{})
	if err := json.Unmarshal(p, &record); err != nil {
		record = map[string]interface{}{"message": strings.TrimSpace(string(p))}
	}
	if err := w.poster.Post(w.tag, record); err != nil {
		return 0, err
	}
	return len(p), nil
}

func gcpLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("ALERT")
	case zapcore.FatalLevel:
		enc.AppendString("CRITICAL")
	default:
		enc.AppendString(strings.ToUpper(l.String()))
	}
}
