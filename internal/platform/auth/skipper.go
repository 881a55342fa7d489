package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// openRoutes are served without a bearer token: the liveness probe and the
// Prometheus scrape endpoint.
var openRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// AuthSkipper lets open routes and CORS preflight requests through JWTMiddleware.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	_, open := openRoutes[c.Path()]
	return open
}
