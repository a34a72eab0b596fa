package api

import (
	"net/http"

	"weatherproxy/internal/gateway"
)

// statusCode is the only place gateway error kinds become HTTP statuses.
func statusCode(kind gateway.Kind) int {
	switch kind {
	case gateway.KindBadRequest:
		return http.StatusBadRequest
	case gateway.KindUnauthorized:
		return http.StatusUnauthorized
	case gateway.KindRateLimited:
		return http.StatusTooManyRequests
	case gateway.KindUpstreamUnavailable, gateway.KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
