// Package log provides structured logging for the daemon using zerolog.
//
// A single global Logger is initialized once via Init and then scoped with
// child loggers: WithComponent for a subsystem name, WithUUID for a single
// workload, WithContainerID for a runtime container. JSON output is used in
// production; console output is available for local development.
package log
