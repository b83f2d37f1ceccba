// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package api is the HTTP side channel next to the gRPC services.

Routes:

	GET  /healthz                               liveness
	GET  /readyz                                store, NATS and stream checks
	GET  /metrics                               Prometheus
	POST /api/v1/actions                        submit one action
	GET  /api/v1/users/{userID}/recommendations ?max_results=
	GET  /api/v1/events/{eventID}/similar       ?max_results=&user_id=
	GET  /api/v1/events/interaction-counts      ?ids=1,2,3

Every JSON response uses the models.APIResponse envelope. The /api/v1 group
is rate limited per client IP with go-chi/httprate.
*/
package api
