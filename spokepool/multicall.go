package spokepool

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// multicallChunkSize is the outer-call batch size of spec.md §4.6.3.
const multicallChunkSize = 250

// MulticallCaller executes one multicall(bytes[]) against the spoke pool
// and returns the raw per-call return data in order.
type MulticallCaller interface {
	Multicall(ctx context.Context, calldata [][]byte) ([][]byte, error)
}

// BatchFillStatuses encodes fillStatuses(hash) for every hash, batched into
// groups of at most 250 calls per multicall, per spec.md §4.6.3. The
// returned slice is positionally aligned with hashes.
func BatchFillStatuses(ctx context.Context, hashes []common.Hash, caller MulticallCaller) ([]FillStatus, error) {
	out := make([]FillStatus, len(hashes))

	for start := 0; start < len(hashes); start += multicallChunkSize {
		end := start + multicallChunkSize
		if end > len(hashes) {
			end = len(hashes)
		}
		chunk := hashes[start:end]

		calldata := make([][]byte, len(chunk))
		for i, h := range chunk {
			packed, err := parsedSpokePoolABI.Pack("fillStatuses", h)
			if err != nil {
				return nil, err
			}
			calldata[i] = packed
		}

		results, err := caller.Multicall(ctx, calldata)
		if err != nil {
			return nil, err
		}

		for i, raw := range results {
			status, err := decodeFillStatusReturn(raw)
			if err != nil {
				return nil, err
			}
			out[start+i] = status
		}
	}

	return out, nil
}

// decodeFillStatusReturn unpacks one fillStatuses(hash) multicall return
// slot. A value outside {0,1,2} raises errFillStatusOutOfRange rather than
// silently reporting Undefined, since that would otherwise be
// indistinguishable from a legitimate ABI-decode failure.
func decodeFillStatusReturn(raw []byte) (FillStatus, error) {
	values, err := parsedSpokePoolABI.Methods["fillStatuses"].Outputs.Unpack(raw)
	if err != nil {
		return Undefined, err
	}
	if len(values) == 0 {
		return Undefined, errFillStatusOutOfRange(-1)
	}
	u8, ok := values[0].(uint8)
	if !ok {
		return Undefined, errFillStatusOutOfRange(-1)
	}
	status := decodeFillStatus(int64(u8))
	if status == Undefined {
		return Undefined, errFillStatusOutOfRange(int64(u8))
	}
	return status, nil
}
