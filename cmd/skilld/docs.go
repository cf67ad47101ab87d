package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/skilld/docs.go -o internal/httpapi/docs`.
//
// @title           skilld API
// @version         1.0
// @description     Admin API for the skill host: status, activation, conversation routing and updates.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
