// Package branding centralizes product naming so surfaces stay consistent.
package branding

// AppName is the product name shown to users and protocol clients.
const AppName = "Pixelfield"
