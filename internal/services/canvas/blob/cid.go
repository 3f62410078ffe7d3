package blob

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CID returns the CIDv1 content address (raw codec, SHA2-256 multihash)
// of data. Identical bytes always produce the identical address.
func CID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash blob: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
