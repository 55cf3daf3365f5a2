package docs

import "github.com/swaggo/swag"

// docTemplate is the OpenAPI document served when no generated
// swagger/swagger.json is present. Run go generate to refresh the full spec.
const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/jackzampolin/sourcecheck"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/check/events": {
            "get": {
                "summary": "Stream run events",
                "tags": [
                    "check"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "101": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/check/start": {
            "post": {
                "summary": "Start a validation run",
                "tags": [
                    "check"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Sources to check",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "409": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/check/status": {
            "get": {
                "summary": "Validation run status",
                "tags": [
                    "check"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/check/stop": {
            "post": {
                "summary": "Stop the active validation run",
                "tags": [
                    "check"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "504": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/content/process": {
            "post": {
                "summary": "Process chapter text",
                "tags": [
                    "content"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Chapter",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/metrics/history": {
            "get": {
                "summary": "Probe history of a source",
                "tags": [
                    "metrics"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "url",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Source URL"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer",
                        "required": false,
                        "description": "Maximum probes (default 50)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/metrics/runs": {
            "get": {
                "summary": "List recorded runs",
                "tags": [
                    "metrics"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer",
                        "required": false,
                        "description": "Maximum runs (default 20)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/metrics/summary": {
            "get": {
                "summary": "Probe metrics summary",
                "tags": [
                    "metrics"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "run_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Run ID"
                    },
                    {
                        "name": "source",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Source URL"
                    },
                    {
                        "name": "all",
                        "in": "query",
                        "type": "boolean",
                        "required": false,
                        "description": "Summarize across runs"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules": {
            "get": {
                "summary": "List replace rules",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Search text or group:name"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/delete": {
            "post": {
                "summary": "Delete replace rules",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Rule IDs",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/enable": {
            "post": {
                "summary": "Enable or disable replace rules",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Rule IDs and target state",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/export": {
            "get": {
                "summary": "Export replace rules",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Search text or group:name"
                    },
                    {
                        "name": "save",
                        "in": "query",
                        "type": "boolean",
                        "required": false,
                        "description": "Write an export file"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/groups": {
            "get": {
                "summary": "List replace rule groups",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/import": {
            "post": {
                "summary": "Import replace rules",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Rules",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/move": {
            "post": {
                "summary": "Move replace rules",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Rule IDs and position",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/renumber": {
            "post": {
                "summary": "Renumber replace rule order",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/rules/{id}": {
            "get": {
                "summary": "Get a replace rule",
                "tags": [
                    "rules"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "integer",
                        "required": true,
                        "description": "Rule ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "404": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/settings": {
            "get": {
                "summary": "List all settings",
                "tags": [
                    "settings"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "503": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/settings/{key}": {
            "get": {
                "summary": "Get a setting",
                "tags": [
                    "settings"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "key",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Setting key, e.g. check.thread_count"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "503": {
                        "description": "Error"
                    }
                }
            },
            "put": {
                "summary": "Update a setting",
                "tags": [
                    "settings"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "key",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Setting key"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "New value",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            },
            "delete": {
                "summary": "Reset a setting to its default",
                "tags": [
                    "settings"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "key",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Setting key"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/sources": {
            "get": {
                "summary": "List book sources",
                "tags": [
                    "sources"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Substring of name or URL"
                    },
                    {
                        "name": "tag",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Tag or group entry"
                    },
                    {
                        "name": "enabled",
                        "in": "query",
                        "type": "boolean",
                        "required": false,
                        "description": "Only enabled or disabled sources"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/sources/delete": {
            "post": {
                "summary": "Delete book sources",
                "tags": [
                    "sources"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Source URLs",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/sources/enable": {
            "post": {
                "summary": "Enable or disable book sources",
                "tags": [
                    "sources"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Source URLs and target state",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/sources/export": {
            "get": {
                "summary": "Export book sources",
                "tags": [
                    "sources"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Substring of name or URL"
                    },
                    {
                        "name": "tag",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Tag or group entry"
                    },
                    {
                        "name": "enabled",
                        "in": "query",
                        "type": "boolean",
                        "required": false,
                        "description": "Only enabled or disabled sources"
                    },
                    {
                        "name": "save",
                        "in": "query",
                        "type": "boolean",
                        "required": false,
                        "description": "Write an export file"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/sources/import": {
            "post": {
                "summary": "Import book sources",
                "tags": [
                    "sources"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Sources",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        },
        "/api/sources/source": {
            "get": {
                "summary": "Get a book source",
                "tags": [
                    "sources"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "url",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Source URL"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Error"
                    },
                    "404": {
                        "description": "Error"
                    }
                }
            }
        },
        "/health": {
            "get": {
                "summary": "Server health",
                "tags": [
                    "health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Server readiness",
                "tags": [
                    "health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "503": {
                        "description": "Error"
                    }
                }
            }
        },
        "/status": {
            "get": {
                "summary": "Detailed server status",
                "tags": [
                    "health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/swagger.json": {
            "get": {
                "summary": "OpenAPI document",
                "tags": [
                    "docs"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "500": {
                        "description": "Error"
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "sourcecheck API",
	Description:      "Book source validation and chapter content processing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
