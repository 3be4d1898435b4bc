// Package openapi embeds the OpenAPI description of the catalog HTTP API.
package openapi

import _ "embed"

// CatalogSpec is the OpenAPI 3 document served next to the API routes.
//
//go:embed catalog.yaml
var CatalogSpec []byte

// Spec returns a copy of the embedded YAML.
func Spec() []byte {
	return append([]byte(nil), CatalogSpec...)
}
