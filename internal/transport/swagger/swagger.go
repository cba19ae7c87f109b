// Package swagger serves the interactive API browser backed by the
// openapi.yml contract at the repository root.
package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler renders swagger-ui pointed at the served contract.
func Handler() http.Handler {
	return httpSwagger.Handler(httpSwagger.URL("/openapi.yml"))
}
