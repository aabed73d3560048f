// Package tracing provides AWS X-Ray distributed tracing for the forecast
// API and training pipeline.
package tracing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/aws/aws-xray-sdk-go/xraylog"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/skycast/internal/config"
)

// xrayLoggerAdapter routes X-Ray SDK logs through the application logger.
type xrayLoggerAdapter struct {
	logger *logrus.Logger
}

func (l *xrayLoggerAdapter) Log(level xraylog.LogLevel, msg fmt.Stringer) {
	switch level {
	case xraylog.LogLevelDebug:
		l.logger.Debug(msg.String())
	case xraylog.LogLevelInfo:
		l.logger.Info(msg.String())
	case xraylog.LogLevelWarn:
		l.logger.Warn(msg.String())
	case xraylog.LogLevelError:
		l.logger.Error(msg.String())
	}
}

// Initialize configures the X-Ray SDK from application configuration. No-op
// when tracing is disabled.
func Initialize(cfg config.TracingConfig, logger *logrus.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	xray.SetLogger(&xrayLoggerAdapter{logger: logger})

	if err := xray.Configure(xray.Config{
		DaemonAddr: cfg.DaemonAddr,
	}); err != nil {
		return err
	}

	logger.WithField("daemon_addr", cfg.DaemonAddr).Info("AWS X-Ray initialized")

	return nil
}

// Middleware wraps an HTTP handler to emit one segment per forecast request.
// Returns the handler unchanged when tracing is disabled.
func Middleware(cfg config.TracingConfig, service string, h http.Handler) http.Handler {
	if !cfg.Enabled {
		return h
	}
	return xray.Handler(xray.NewFixedSegmentNamer(service), h)
}

// StartSegment begins a standalone segment for background work such as a
// scheduled training run. The returned close function is nil-safe.
func StartSegment(ctx context.Context, enabled bool, name string) (context.Context, func(error)) {
	if !enabled {
		return ctx, func(error) {}
	}
	ctx, seg := xray.BeginSegment(ctx, name)
	return ctx, func(err error) { seg.Close(err) }
}

// AddAnnotation attaches an indexed annotation to the current segment, if any.
func AddAnnotation(ctx context.Context, key string, value interface{}) {
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddAnnotation(key, value)
	}
}

// AddError records an error on the current segment, if any.
func AddError(ctx context.Context, err error) {
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddError(err)
	}
}
