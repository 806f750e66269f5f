// Package docs TaskHub API documentation
package docs

import "github.com/swaggo/swag"

// Swagger documentation info
// @title TaskHub API
// @version 1.0
// @description Central API documentation - For all TaskHub services
// @termsOfService http://swagger.io/terms/

// @host localhost:8003
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// Auth Service Endpoints
// @tag.name auth
// @tag.description Authentication and user session management

// Core Service Endpoints
// @tag.name users
// @tag.description User management
// @tag.name tasks
// @tag.description Task management
// @tag.name organizations
// @tag.description Organization management
// @tag.name audit
// @tag.description Audit trail access

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8003",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "TaskHub API",
	Description:      "Central API documentation - For all TaskHub services",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
