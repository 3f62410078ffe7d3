// Package server hosts the canvas service process. It owns the
// single-writer ledger, the snapshot render pipeline, the live event feed,
// and the HTTP lifecycle around them.
package server
