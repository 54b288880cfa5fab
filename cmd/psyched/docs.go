package main

// General API documentation for swaggo. Run `swag init -g cmd/psyched/main.go` to regenerate docs.
//
// @title           psyched API
// @version         1.0
// @description     HTTP API for queued image generation and canvas broadcast.
//
// @contact.name   psyched maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
