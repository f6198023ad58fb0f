// Package docs contains the swagger documentation, written by hand in the
// layout that `swag init -g internal/httpapi/server.go -o internal/httpapi/docs` produces.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "sessiondex API",
        "description": "Local indexing and search over AI coding-assistant session transcripts.",
        "version": "1.0"
    },
    "basePath": "/api",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns daemon status and version",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Get daemon health",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/HealthResponse"}
                    }
                }
            }
        },
        "/projects-list": {
            "post": {
                "description": "Lists projects, optionally filtered by provider and a name/path substring",
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "List projects",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProjectsListRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProjectsListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/search-query": {
            "post": {
                "description": "Full-text search across indexed message content",
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Search messages",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SearchQueryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SearchQueryResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/indexer/progress": {
            "get": {
                "description": "Upgrades to WebSocket and streams refresh job start/completion events",
                "tags": ["indexer"],
                "summary": "Stream indexing progress"
            }
        }
    },
    "definitions": {
        "HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "ProjectsListRequest": {
            "type": "object",
            "properties": {
                "providers": {"type": "array", "items": {"type": "string"}},
                "query": {"type": "string"}
            }
        },
        "ProjectsListResponse": {
            "type": "object",
            "properties": {
                "projects": {"type": "array", "items": {"$ref": "#/definitions/ProjectJSON"}}
            }
        },
        "ProjectJSON": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "provider": {"type": "string"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "sessionCount": {"type": "integer"},
                "lastActivity": {"type": "string"}
            }
        },
        "SearchQueryRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "SearchQueryResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "totalCount": {"type": "integer"},
                "results": {"type": "array", "items": {"type": "object"}}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "sessiondex API",
	Description:      "Local indexing and search over AI coding-assistant session transcripts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
