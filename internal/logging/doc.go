// Package logging provides the process-wide structured logger.
//
// The package wraps [log/slog] and keeps a single logger that is installed
// once with Init and retrieved with GetLogger. Subsystems never build their own
// slog.Logger, so level and destination are controlled from one place.
//
// Call Init at startup, before goroutines that log are spawned:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// GetLogger called before Init installs an INFO text logger on stdout.
//
// The With helpers return child loggers carrying the usual fields:
//
//	log := logging.WithOrder(order.ID)
//	log.Info("submitted to kitchen", "items", len(order.Items))
package logging
