// Package http is the canvas REST transport: route wiring, painter-grant
// resolution, JSON encoding, and the error envelope. Handlers translate
// requests for a Canvas implementation and never hold state of their own.
package http
