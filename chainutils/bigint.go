// Package chainutils provides the small set of codecs and helpers shared
// across the RPC provider stack, block finder, spoke utilities and CCTP
// pipeline: hex/big-integer conversions, JSON round-tripping of big
// integers, and log ordering.
package chainutils

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseBlockTag decodes a JSON-RPC block tag parameter. Numeric hex tags
// ("0x1b4") decode to their value and ok=true; symbolic tags ("latest",
// "pending", "earliest", "safe", "finalized") return ok=false so callers can
// treat them as NONE for caching purposes (spec.md C2).
func ParseBlockTag(tag string) (blockNumber uint64, ok bool) {
	if !strings.HasPrefix(tag, "0x") {
		return 0, false
	}
	n, err := hexutil.DecodeUint64(tag)
	if err != nil {
		return 0, false
	}
	return n, true
}

// EncodeBlockTag renders a block number as a hex JSON-RPC tag.
func EncodeBlockTag(n uint64) string {
	return hexutil.EncodeUint64(n)
}

// DecodeHexBig decodes a 0x-prefixed hex string into a *big.Int. Returns an
// error for malformed input rather than silently truncating, unlike naive
// SetString(hex[2:], 16) call sites.
func DecodeHexBig(s string) (*big.Int, error) {
	if s == "" || s == "0x" {
		return big.NewInt(0), nil
	}
	return hexutil.DecodeBig(s)
}

// EncodeHexBig renders a *big.Int as a 0x-prefixed hex string.
func EncodeHexBig(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// BigIntJSON revives a big integer from a cached JSON payload where it may
// have been serialized either as a JSON number or as a decimal/hex string.
// The cache provider (C2) round-trips arbitrary JSON-RPC results through
// encoding/json, and Go's json.Number by itself cannot hold values above
// 2^53 without this kind of explicit revival.
func BigIntJSON(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case string:
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			return DecodeHexBig(v)
		}
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("chainutils: cannot parse %q as big integer", v)
		}
		return n, nil
	case float64:
		return new(big.Int).SetInt64(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("chainutils: unsupported big integer representation %T", raw)
	}
}

// FormatInt renders an int as a base-10 string, used for stable cache-key
// construction where fmt.Sprintf would otherwise allocate through an
// interface boxing path on every call.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
