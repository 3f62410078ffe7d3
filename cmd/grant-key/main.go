// Package main provides a one-shot utility for painter grant key generation.
//
// It emits the asymmetric keypair the canvas service verifies Bearer grants
// against.
package main

import (
	"os"

	"github.com/louisbranch/pixelfield/internal/platform/config"
	"github.com/louisbranch/pixelfield/internal/tools/grantkey"
)

func main() {
	if err := grantkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate grant key: %v", err)
	}
}
