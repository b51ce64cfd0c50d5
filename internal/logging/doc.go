// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stderr console + OpenTelemetry)
//   - Automatic context field injection (trace_id, run.id, document.path)
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithDocumentPath(ctx, "docs/lessons/db-pool.md")
//	logger.Warn(ctx, "document skipped", zap.Error(err))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2025-11-24T10:15:30Z",
//	  "level": "warn",
//	  "msg": "document skipped",
//	  "trace_id": "abc123",
//	  "run.id": "3f1c9a2e-...",
//	  "document.path": "docs/lessons/db-pool.md",
//	  "error": "document exceeds size limit"
//	}
//
// # Configuration Precedence
//
//  1. Defaults (NewDefaultConfig)
//  2. File (lessons.yaml, section "logging")
//  3. Environment variables (LESSONS_LOGGING_*)
//
// # Sampling
//
// Each level has its own budget per tick, counted per message:
//   - Debug: first 10, drop rest
//   - Info: first 100, then 1 every 10
//   - Warn: first 100, then 1 every 100
//
// Error and above are never sampled. Trace entries are not counted by zap's
// sampler, so trace output is unsampled.
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
