// Package contracts embeds the OpenAPI document of the authenticated API.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed rentboard.yaml
var rentboardYAML []byte

// Name is the document name served under /openapi/{name}.json.
const Name = "rentboard"

// YAML returns a copy of the raw contract.
func YAML() []byte {
	return append([]byte(nil), rentboardYAML...)
}

// Load parses and validates the embedded contract. Every call returns a fresh document so
// callers may mutate it.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rentboardYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi contract: %w", err)
	}
	return doc, nil
}
