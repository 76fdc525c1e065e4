// Package ratelimiter implements token bucket rate limiting with memory
// and Redis stores and an HTTP middleware that sets X-RateLimit-* headers.
//
// A bucket holds Capacity tokens and regains RefillRate tokens every
// RefillInterval. A request is allowed while enough tokens remain. Denied
// requests do not drain the bucket further.
package ratelimiter
