package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>ziota API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "ziota", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Result": { "type": "object", "properties": { "success": {"type":"boolean"}, "message": {"type":"string"}, "error": {"type":"string"} } },
      "FileMeta": { "type": "object", "properties": { "id":{"oneOf":[{"type":"string"},{"type":"number"}],"description":"numbers are stored as their decimal string"}, "name":{"type":"string"}, "url":{"type":"string"}, "publicId":{"type":"string"}, "type":{"type":"string"}, "size":{"type":"integer"}, "uploadDate":{"type":"string","format":"date-time"} } },
      "Subject": { "type": "object", "properties": { "id":{"type":"string"}, "name":{"type":"string"}, "icon":{"type":"string"}, "description":{"type":"string"} } },
      "DataResult": { "type": "object", "properties": { "success": {"type":"boolean"}, "data": {} } }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/health": { "get": { "summary": "Configuration health", "security": [], "responses": { "200": { "description": "status and configured dependencies" } } } },
    "/api/user/data": {
      "get": { "summary": "User data with defaults", "responses": { "200": { "description": "{success, data: user data}", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/DataResult" } } } }, "401": { "description": "invalid token" }, "404": { "description": "user not found" } } },
      "put": { "summary": "Replace allow-listed fields", "responses": { "200": { "description": "updated" } } }
    },
    "/api/user/images": {
      "post": { "summary": "Upload an image (multipart field 'file')", "responses": { "201": { "description": "image url" } } },
      "delete": { "summary": "Clear all images", "responses": { "200": { "description": "cleared" } } }
    },
    "/api/user/files": { "get": { "summary": "Files across all subjects", "responses": { "200": { "description": "{success, data: files with subjectId}", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/DataResult" } } } } } } },
    "/api/user/subject/files/all": { "get": { "summary": "Files across all subjects", "responses": { "200": { "description": "{success, data: files with subjectId}", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/DataResult" } } } } } } },
    "/api/user/subject/{subjectId}": {
      "get": { "summary": "Subject metadata, notes and files", "responses": { "200": { "description": "{success, data: subject data}", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/DataResult" } } } } } },
      "put": { "summary": "Replace notes, files or subject metadata", "responses": { "200": { "description": "updated" } } }
    },
    "/api/user/subject/{subjectId}/files": { "post": { "summary": "Upload a subject file (multipart field 'file')", "responses": { "201": { "description": "file metadata" } } } },
    "/api/user/subject/{subjectId}/files/{fileId}": { "delete": { "summary": "Remove a file entry", "responses": { "200": { "description": "deleted or already absent" } } } },
    "/auth/register": { "post": { "summary": "Register with username, email and password", "security": [], "responses": { "201": { "description": "registered" }, "400": { "description": "duplicate or missing fields" } } } },
    "/auth/login": { "post": { "summary": "Login with email or username and password", "security": [], "responses": { "200": { "description": "token, refreshToken and user" }, "400": { "description": "invalid credentials" } } } },
    "/auth/check-user": { "post": { "summary": "Verify an identity token and upsert the account", "security": [], "responses": { "200": { "description": "user" }, "401": { "description": "invalid token" } } } },
    "/auth/refresh": { "post": { "summary": "Refresh access token", "security": [], "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } } },
    "/auth/logout": { "post": { "summary": "Revoke the bearer token and refresh session", "responses": { "200": { "description": "logged out" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
