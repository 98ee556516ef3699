// Package logger builds configured log/slog loggers and provides typed
// attribute helpers for the identifiers that appear throughout the platform
// (subscription, tier, subscriber, creator, processor event).
//
// Production defaults are JSON output at info level; development usually runs
// with text output at debug level. Settings come from the environment via
// Config:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg)
//	logger.SetAsDefault(log)
//
// Attribute helpers keep log field names consistent across packages:
//
//	log.Info("slot released",
//	    logger.TierID(tierID),
//	    logger.SubscriptionID(subID),
//	)
package logger
