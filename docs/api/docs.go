// Package api registers the swagger document of the collections API.
package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/localnerve/jam-build-collectionsdb",
            "email": "info@localnerve.com"
        },
        "license": {
            "name": "AGPL-3.0",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/forms/{collection}": {
            "post": {
                "tags": ["Forms"],
                "summary": "Submit a form",
                "parameters": [
                    {"type": "string", "description": "Collection path", "name": "collection", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "404": {"description": "Not Found"},
                    "415": {"description": "Unsupported Media Type"},
                    "422": {"description": "Unprocessable Entity"},
                    "502": {"description": "Bad Gateway"}
                }
            }
        },
        "/complaints": {
            "get": {"tags": ["Public"], "summary": "Get the complaint table", "responses": {"200": {"description": "OK"}}}
        },
        "/reports/{day}": {
            "get": {
                "tags": ["Public"],
                "summary": "Get reports for a weekday",
                "parameters": [
                    {"type": "string", "description": "Weekday (monday-friday)", "name": "day", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/files/{path}": {
            "get": {
                "tags": ["Public"],
                "summary": "Download an uploaded file",
                "parameters": [
                    {"type": "string", "description": "Storage path", "name": "path", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/theme": {
            "get": {"tags": ["Public"], "summary": "Get the current theme", "responses": {"200": {"description": "OK"}}}
        },
        "/session": {
            "get": {"tags": ["Session"], "summary": "Current session", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/{collection}": {
            "get": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "List a collection",
                "parameters": [
                    {"type": "string", "description": "Collection path", "name": "collection", "in": "path", "required": true},
                    {"type": "string", "description": "Filter text", "name": "q", "in": "query"},
                    {"type": "string", "description": "Sort field", "name": "sort", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "dir", "in": "query"},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Rows per page", "name": "pageSize", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/admin/{collection}/{id}": {
            "patch": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Save a record",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}, "502": {"description": "Bad Gateway"}}
            },
            "delete": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Delete a record",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "confirm", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "428": {"description": "Precondition Required"}}
            }
        },
        "/admin/{collection}/export": {
            "get": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Export a collection",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "string", "description": "csv or xlsx", "name": "format", "in": "query"},
                    {"type": "string", "description": "all or page", "name": "scope", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/admin/complaints": {
            "put": {"security": [{"CookieAuth": []}], "tags": ["Admin"], "summary": "Replace the complaint table", "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}}}
        },
        "/admin/complaints/{srNo}": {
            "patch": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Edit one complaint table row",
                "parameters": [{"type": "string", "name": "srNo", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/admin/reports/{day}": {
            "post": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Upload a report",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "string", "name": "day", "in": "path", "required": true},
                    {"type": "string", "name": "title", "in": "formData"},
                    {"type": "file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {"201": {"description": "Created"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/admin/reports/{day}/{id}": {
            "delete": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Delete a report",
                "parameters": [
                    {"type": "string", "name": "day", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "confirm", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "428": {"description": "Precondition Required"}}
            }
        },
        "/admin/theme": {
            "put": {"security": [{"CookieAuth": []}], "tags": ["Admin"], "summary": "Select the site palette", "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}}}
        },
        "/admin/live/{collection}": {
            "get": {
                "security": [{"CookieAuth": []}],
                "tags": ["Admin"],
                "summary": "Live admin view (websocket)",
                "parameters": [{"type": "string", "name": "collection", "in": "path", "required": true}],
                "responses": {"101": {"description": "Switching Protocols"}, "426": {"description": "Upgrade Required"}}
            }
        }
    },
    "securityDefinitions": {
        "CookieAuth": {"type": "apiKey", "name": "cookie_session", "in": "cookie"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:3000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "CollectionsDB API",
	Description:      "Realtime collections for site forms, admin tables and file uploads",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
