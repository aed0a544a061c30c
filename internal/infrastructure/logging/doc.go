// Package logging wraps uber/zap for the node and its components.
//
// New builds a logger from a Config. DefaultConfig writes JSON to stdout at
// info level; DevelopmentConfig switches to a colored console encoder at
// debug level with stack traces on warnings. Setting Config.File (LOG_FILE)
// adds a second JSON core that writes to a file rotated by lumberjack
// (MaxSizeMB, MaxBackups, MaxAgeDays, compressed backups).
//
// Every component gets a child from Named, so entries carry the component
// label in the logger name. SetLevel on any logger changes the level of the
// whole tree. FromZap adopts an existing zap logger, which tests use with an
// observer core.
//
// Example Usage:
//
//	cfg := logging.DefaultConfig()
//	cfg.File = "/var/log/telenode/node.log"
//	logger, err := logging.New(cfg)
//	if err != nil {
//		return err
//	}
//	logger.Named("importer").Info("Component spawned", zap.String("label", "importer"))
package logging
