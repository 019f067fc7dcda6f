// Package services defines the [Bilibili] interface consumed by the sync engine and implements it over HTTP.
//
// # Remote Interface
//
// [Bilibili] exposes the four read-only calls a sync needs: the favorite-folder id index, one favorite
// detail page, a collection's full listing and a video's part list. Tests substitute their own implementation.
//
// # bilibili Implementation
//
// [BilibiliService] talks to the bilibili web API:
//   - Requests go through a [retryablehttp.Client], which retries connection errors and 5xx statuses
//   - A [rate.Limiter] paces requests to the configured requests_per_second
//   - An optional SESSDATA cookie is attached to every request as configured
//   - Responses are unwrapped from the {code, message, data} envelope
//
// # Error Handling
//
// Every failure is an [*APIError] whose Kind is one of:
//   - [KindNetwork] : transport failure
//   - [KindResponse] : non-2xx status once retries are exhausted (Code holds the status),
//     or an envelope with a non-zero code (never retried)
//   - [KindDecode] : the body or its data could not be decoded
//
// All of them match [shared.ErrAPIRequest] with [errors.Is].
package services
