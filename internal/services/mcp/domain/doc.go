// Package domain translates MCP tool calls into canvas API operations.
//
// The package is intentionally explicit about that mapping:
// - decode MCP tool input into a canvas REST call,
// - surface structured outputs that MCP clients can render,
// - and keep every mutation attributable to the configured painter.
//
// Handlers hold no state of their own; identity travels with the API client
// (painter grant or development actor header).
package domain
