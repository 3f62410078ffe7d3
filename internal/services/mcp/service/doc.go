// Package service wires protocol transport to domain handlers.
//
// It is the transport adapter layer: the package knows how to run MCP over
// stdio or streamable HTTP and delegates business meaning to the domain
// handlers, which call the canvas REST API.
package service
