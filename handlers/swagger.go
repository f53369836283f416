package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>renoplan API</title>
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

// Minimal OpenAPI document describing the main API surface.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "renoplan", "version": "v0.1.0" },
  "paths": {
    "/api/auth/login": {
      "get": { "summary": "Build the provider authorization URL", "parameters": [{"name":"redirect_uri","in":"query","required":true,"schema":{"type":"string"}},{"name":"state","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "authorization URL and state" } } }
    },
    "/api/auth/callback": {
      "get": { "summary": "Exchange the authorization code for tokens", "parameters": [{"name":"code","in":"query","required":true,"schema":{"type":"string"}},{"name":"state","in":"query","schema":{"type":"string"}},{"name":"redirect_uri","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "tokens, user and session" }, "401": { "description": "authentication failed" }, "409": { "description": "code already used" } } }
    },
    "/api/auth/refresh": {
      "post": { "summary": "Rotate the token pair", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "rotated tokens" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/auth/me": {
      "get": { "summary": "Authenticated user and session", "responses": { "200": { "description": "user and session" }, "401": { "description": "not authenticated" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Revoke tokens and end the session", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/auth/logout-all": {
      "post": { "summary": "End every session of the user", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/projects": {
      "get": { "summary": "List the user's projects", "responses": { "200": { "description": "projects, newest first" } } },
      "post": { "summary": "Create a project", "responses": { "201": { "description": "created" } } }
    },
    "/api/projects/{id}": {
      "get": { "summary": "Get a project", "responses": { "200": { "description": "project" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update project fields", "responses": { "200": { "description": "updated project" } } },
      "delete": { "summary": "Delete a project and its tasks", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/projects/{id}/tasks": {
      "get": { "summary": "List tasks", "responses": { "200": { "description": "tasks, oldest first" } } },
      "post": { "summary": "Create a task", "responses": { "201": { "description": "created" } } }
    },
    "/api/projects/{id}/budget": {
      "get": { "summary": "Budget summary from task cost estimates", "responses": { "200": { "description": "totals by status" } } }
    },
    "/api/projects/{id}/apply-template": {
      "post": { "summary": "Instantiate a work-item template's tasks", "responses": { "201": { "description": "created tasks" } } }
    },
    "/api/templates": {
      "get": { "summary": "List work-item templates", "responses": { "200": { "description": "templates" } } },
      "post": { "summary": "Create a template", "responses": { "201": { "description": "created" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
