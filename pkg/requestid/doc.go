// Package requestid attaches a correlation ID to every HTTP request.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// stores it in the request context and echoes it back. LoggerExtractor feeds
// the ID into pkg/logger so every record of a request carries request_id.
package requestid
