// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package services provides suture.Service wrappers for Eventsim components.

Each wrapper translates a component's own lifecycle into suture's
Serve(ctx) pattern and returns an error only when the supervisor should
restart it:

  - ConsumerService runs a batch consumer loop until cancellation.
  - GRPCServerService listens, serves, then GracefulStop with a deadline
    before falling back to Stop.
  - HTTPServerService runs ListenAndServe and calls Shutdown on cancel.

Every wrapper implements fmt.Stringer so supervisor events name it.
*/
package services
