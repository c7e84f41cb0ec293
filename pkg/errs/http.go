package errs

import "net/http"

// HTTPStatus maps an error kind to the response status the delivery layer
// uses: auth 401, not-found 404, validation 400, upstream and AI 502.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream, KindAI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
