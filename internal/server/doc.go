// Package server provides the HTTP surface of bilisync: health, Prometheus metrics, and sync triggers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied in the order it is added, so the first one registered sees the request first.
// [Recover] and [RequestLogger] are installed by [New].
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
//   - GET /healthz : liveness probe
//   - GET /metrics : Prometheus exposition of the sync metrics
//   - POST /api/sync?type=&id= : runs one sync and returns {playlist_id, added, removed, hidden}
//
// A sync that is already running for the same resource answers 409 Conflict.
// Remote failures answer 502 and bad input 400.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
