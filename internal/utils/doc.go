// Package utils exposes the ambient helpers shared by the command and the
// updater.
//
// ConfigurationLoader layers embedded defaults, configuration files, and
// environment variables through Viper. LoggerFactory builds zap loggers that
// write every record to both the console and an append-only log file.
package utils
