//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools (install via `go install`):
//
// Air - Live reload for Go apps; pair with DEV=true so templates and static
// assets are read from frontend/ on every request.
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
//
// MockGen - regenerates internal/mocks from internal/ports
//   Run: go generate ./internal/mocks
//   Docs: https://github.com/uber-go/mock
