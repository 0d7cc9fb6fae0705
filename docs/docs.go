// Package docs registers the OpenAPI document served under /swagger.
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
        "/register": {
            "post": {
                "description": "Creates a new account. Username and email must both be unused.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register",
                "parameters": [
                    {
                        "description": "New account",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/auth.RegisterRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "User registered", "schema": {"$ref": "#/definitions/auth.MessageResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "409": {"description": "Username or email taken", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/api.ErrorBody"}}
                }
            }
        },
        "/login": {
            "post": {
                "description": "Exchanges email and password for a one-hour access token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/auth.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Access token", "schema": {"$ref": "#/definitions/auth.TokenResponse"}},
                    "400": {"description": "User not found, invalid credentials or invalid input", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/api.ErrorBody"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Protected resource. Returns the authenticated user's profile.",
                "produces": ["application/json"],
                "tags": ["Dashboard"],
                "summary": "Dashboard",
                "responses": {
                    "200": {"description": "Dashboard", "schema": {"$ref": "#/definitions/dashboard.Dashboard"}},
                    "403": {"description": "Missing, invalid or expired token", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/api.ErrorBody"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/api.ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {"type": "string", "example": "Invalid credentials"},
                "request_id": {"type": "string"}
            }
        },
        "auth.RegisterRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "alice"},
                "email": {"type": "string", "example": "a@x.io"},
                "password": {"type": "string", "example": "pw1"}
            }
        },
        "auth.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "a@x.io"},
                "password": {"type": "string", "example": "pw1"}
            }
        },
        "auth.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "User registered successfully"}
            }
        },
        "auth.TokenResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"}
            }
        },
        "dashboard.Dashboard": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Welcome to your dashboard, alice"},
                "user": {"$ref": "#/definitions/types.UserAuth"}
            }
        },
        "types.UserAuth": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "d290f1ee-6c54-4b01-90e6-d701748f0851"},
                "username": {"type": "string", "example": "alice"},
                "email": {"type": "string", "example": "alice@x.com"},
                "created_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Signup Auth API",
	Description:      "Account registration, password login and bearer-token access.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
