package main

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/contracts"
)

// contractPath serves the JSON rendering of the embedded contract.
var contractPath = "/openapi/" + contracts.Name + ".json"

const swaggerPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Rentboard API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>body{margin:0} #swagger-ui{max-width:1400px;margin:0 auto}</style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: %q,
        dom_id: '#swagger-ui',
        deepLinking: true,
        persistAuthorization: true
      });
    </script>
  </body>
</html>`

// registerDocsRoutes mounts /docs and the contract JSON. The document is rendered once, before
// the validator strips its servers list.
func registerDocsRoutes(router chi.Router, spec *openapi3.T, logger *zap.Logger) error {
	doc, err := spec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal api contract: %w", err)
	}
	page := []byte(fmt.Sprintf(swaggerPage, contractPath))

	logSecuritySchemes(logger, spec)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	router.Get(contractPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
	return nil
}

func logSecuritySchemes(logger *zap.Logger, spec *openapi3.T) {
	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for scheme := range spec.Components.SecuritySchemes {
		names = append(names, scheme)
	}
	slices.Sort(names)
	logger.Info("api contract loaded",
		zap.String("contract", contracts.Name),
		zap.String("version", spec.Info.Version),
		zap.Int("paths", spec.Paths.Len()),
		zap.Strings("security_schemes", names),
	)
}
