/*
Package log provides structured logging for the VeloxDB object model using
zerolog.

The package wraps zerolog to provide JSON or console-formatted logging with
component-scoped child loggers. All logs include timestamps; severity can be
filtered globally via Init. Session-affine components (the object model
session, the id allocator, the cascade-delete fixpoint) tag their entries
with a component name and, where relevant, a session id so log lines from
concurrent sessions can be told apart.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("session")
	logger.Debug().Uint64("obj_id", id).Msg("object created")
*/
package log
