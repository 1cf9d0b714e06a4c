// Package logger builds the service's *slog.Logger.
//
// New applies functional options (format, level, output, static attributes)
// and wraps the handler so that attributes carried by the request context,
// such as the request id or the acting user, are added to every record:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.AppEnv, "familykit"),
//		logger.WithContextExtractors(requestIDExtractor),
//	)
//	log.InfoContext(ctx, "subscription updated", logger.UserID(userID), logger.PlanID(planID))
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
