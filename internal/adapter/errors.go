package adapter

import "errors"

// Classification sentinels. Every error returned by a [RemoteTransport]
// wraps exactly one of these so the sync engine can decide whether a
// retry can possibly help.
var (
	// ErrTransient marks failures worth retrying: network errors,
	// timeouts, throttling and 5xx-class server responses.
	ErrTransient = errors.New("transient transport error")

	// ErrPermanent marks failures a retry cannot fix: malformed requests,
	// authorization rejections and missing artifacts.
	ErrPermanent = errors.New("permanent transport error")
)

// Status sentinels mapped from remote responses.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("access forbidden")
	ErrNotFound            = errors.New("artifact not found")
	ErrConflict            = errors.New("version conflict")
	ErrBadGateway          = errors.New("bad gateway")
	ErrInternalServerError = errors.New("internal server error")
)
