// Package docs holds the generated Swagger 2.0 document, normally produced
// by `swag init` from handler annotations. Kept hand-authored here (a
// minimal but valid spec) since no swag toolchain run shipped with the
// retrieved pack; it registers the same way a generated file would.
package docs

import (
	"github.com/swaggo/swag"
)

const docTemplate = `{
	"swagger": "2.0",
	"info": {
		"title": "{{.Title}}",
		"description": "{{escape .Description}}",
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/api/v1/carts": {
			"post": {
				"summary": "Create a cart for a terminal",
				"produces": ["application/json"],
				"responses": {"200": {"description": "cart created"}}
			}
		},
		"/api/v1/carts/{cartId}/bill": {
			"post": {
				"summary": "Finalize a cart",
				"produces": ["application/json"],
				"responses": {"200": {"description": "transaction finalized"}}
			}
		},
		"/accounts/token": {
			"post": {
				"summary": "OAuth2 password grant token issuance",
				"produces": ["application/json"],
				"responses": {"200": {"description": "token issued"}}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
		"ApiKeyAuth": {"type": "apiKey", "name": "X-API-KEY", "in": "header"}
	},
	"definitions": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Kugel POS Backend API",
	Description:      "Multi-tenant point-of-sale backend: cart engine, event delivery, stock ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
