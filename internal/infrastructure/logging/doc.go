// Package logging builds the service's zap loggers.
//
// Production logs are JSON on stdout. Development logs (LOG_DEV=true) use the
// colored console encoder at debug level. Components receive a *zap.Logger
// named after themselves:
//
//	logger := logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)
//	orch := browser.NewOrchestrator(browser.Dependencies{Logger: logger.Component("orchestrator")})
package logging
