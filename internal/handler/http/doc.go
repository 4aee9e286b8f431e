// Package http implements the HTTP transport layer of the blob server.
//
// It exposes route wiring, the artifact request handlers, and middleware
// used by the REST API. Cross-cutting concerns such as device
// authentication, request tracing, access logging, response compression,
// and payload integrity checks are handled in this package before
// requests reach the artifact store.
package http
