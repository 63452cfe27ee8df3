package auth

import "github.com/labstack/echo/v4"

// publicPaths bypass authentication: health checks and scraping.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// PublicPathSkipper matches on the registered route path, so query strings
// and trailing segments cannot widen it.
func PublicPathSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
