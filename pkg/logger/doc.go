// Package logger builds the service's slog loggers and holds the attribute
// helpers shared by the mail and real-time pipelines.
//
// New creates a *slog.Logger from options. WithEnvironment applies a preset
// per deployment (text at debug level in development, JSON at info level
// elsewhere) and FromConfig layers LOG_LEVEL and LOG_FORMAT overrides on top:
//
//	overrides, err := logger.FromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	log := logger.New(append([]logger.Option{
//	    logger.WithEnvironment(logger.ParseEnvironment(env), "notifyd"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	}, overrides...)...)
//
// Every record passes through a ContextHandler that runs the registered
// ContextExtractor callbacks, so request-scoped values land in the log
// without being passed around explicitly.
//
// Attribute helpers (NotificationID, ConnectionID, Recipient, Outcome,
// BatchSize, ...) keep key names consistent. Error and Errors return an empty
// attribute for nil errors, so they can be passed unconditionally.
package logger
