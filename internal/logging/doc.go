// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package logging is the process-wide zerolog logger for eventsim.

Every component logs through the package-level helpers so that one call to
Init at startup controls level, format and caller annotation everywhere:

	logging.Init(logging.Config{Level: "debug", Format: "console"})
	logging.Info().Int64("event_id", id).Msg("Similarity published")

Request-scoped logging picks the correlation ID out of the context:

	ctx = logging.ContextWithNewCorrelationID(ctx)
	logging.Ctx(ctx).Warn().Err(err).Msg("Query timed out")

Libraries with their own logging interfaces are bridged onto the same
logger: NewSlogLogger serves suture's sutureslog hook and NewWatermillLogger
serves the watermill NATS publisher.

Critical is reserved for failures that lose work, such as a sink that could
not flush its last batch during shutdown. It logs at fatal level without
exiting the process.
*/
package logging
