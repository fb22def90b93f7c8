// Package docs holds the OpenAPI description served under /swagger. It is
// generated from the handler annotations with `swag init -g cmd/server/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/refresh-token": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh the access token",
                "parameters": [
                    {"description": "Refresh token", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.refreshTokenRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.refreshTokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "User registration details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.registerResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/todos": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "List todos",
                "parameters": [
                    {"type": "integer", "description": "Page number, starting at 1", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size, at most 100", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listTodosResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Create a todo",
                "parameters": [
                    {"description": "Todo", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.todoRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.todoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/todos/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Get a todo",
                "parameters": [{"type": "integer", "description": "Todo id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.todoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Replace a todo",
                "parameters": [
                    {"type": "integer", "description": "Todo id", "name": "id", "in": "path", "required": true},
                    {"description": "Todo", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.todoRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.todoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["todos"],
                "summary": "Delete a todo",
                "parameters": [{"type": "integer", "description": "Todo id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Toggle completion",
                "parameters": [{"type": "integer", "description": "Todo id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.todoResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "handler.listTodosResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/handler.todoResponse"}},
                "limit": {"type": "integer"},
                "page": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "properties": {"password": {"type": "string"}, "username_or_email": {"type": "string"}}
        },
        "handler.loginResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "role": {"type": "string"},
                "token_type": {"type": "string"},
                "user_id": {"type": "integer"}
            }
        },
        "handler.refreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "handler.refreshTokenResponse": {
            "type": "object",
            "properties": {"access_token": {"type": "string"}, "token_type": {"type": "string"}}
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["email", "name", "password", "username"],
            "properties": {
                "email": {"type": "string", "maxLength": 254},
                "name": {"type": "string", "maxLength": 100},
                "password": {"type": "string", "maxLength": 72, "minLength": 3},
                "username": {"type": "string", "maxLength": 50, "minLength": 3}
            }
        },
        "handler.registerResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "handler.todoRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "completed": {"type": "boolean"},
                "description": {"type": "string", "maxLength": 2000},
                "title": {"type": "string", "maxLength": 200}
            }
        },
        "handler.todoResponse": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Todo System API",
	Description:      "Todo CRUD protected by JWT access and refresh tokens.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
