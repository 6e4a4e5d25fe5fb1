// Package relaydata implements the RelayData value type and its canonical
// keccak256 hash, the on-chain primary key for a fill (spec.md §3, §4.6,
// §6 "Relay-data hash").
package relaydata

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/relay-bridge/sdk-core/address"
)

// RelayData is the immutable tuple identifying a single cross-chain fill
// request. Address fields are carried as address.Address and normalized to
// their bytes32 view before hashing or ABI encoding, so the same RelayData
// hashes identically regardless of whether its addresses were constructed
// from a 20-byte EVM hex string or an already-padded bytes32 value.
type RelayData struct {
	Depositor           address.Address
	Recipient           address.Address
	ExclusiveRelayer    address.Address
	InputToken          address.Address
	OutputToken         address.Address
	InputAmount         *big.Int
	OutputAmount        *big.Int
	OriginChainID       *big.Int
	DepositID           *big.Int
	FillDeadline        uint32
	ExclusivityDeadline uint32
	Message             []byte
}

var relayDataArguments = abi.Arguments{
	{Type: mustType("bytes32")}, // depositor
	{Type: mustType("bytes32")}, // recipient
	{Type: mustType("bytes32")}, // exclusiveRelayer
	{Type: mustType("bytes32")}, // inputToken
	{Type: mustType("bytes32")}, // outputToken
	{Type: mustType("uint256")}, // inputAmount
	{Type: mustType("uint256")}, // outputAmount
	{Type: mustType("uint256")}, // originChainId
	{Type: mustType("uint256")}, // depositId
	{Type: mustType("uint32")},  // fillDeadline
	{Type: mustType("uint32")},  // exclusivityDeadline
	{Type: mustType("bytes")},   // message
	{Type: mustType("uint256")}, // destinationChainId (extrinsic)
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("relaydata: invalid ABI type literal " + t + ": " + err.Error())
	}
	return typ
}

func toBytes32(a address.Address) [32]byte {
	var out [32]byte
	copy(out[:], a.Bytes())
	return out
}

// Hash computes the canonical keccak256(abi_encode(RelayData_with_bytes32_addresses,
// destinationChainId)). This is the on-chain lookup key used in fillStatuses
// and is the sole carrier of "which fill is this" identity across the
// deposit-id and fill-block searches in package spokepool.
func (r RelayData) Hash(destinationChainID *big.Int) (common.Hash, error) {
	packed, err := relayDataArguments.Pack(
		toBytes32(r.Depositor),
		toBytes32(r.Recipient),
		toBytes32(r.ExclusiveRelayer),
		toBytes32(r.InputToken),
		toBytes32(r.OutputToken),
		r.InputAmount,
		r.OutputAmount,
		r.OriginChainID,
		r.DepositID,
		r.FillDeadline,
		r.ExclusivityDeadline,
		r.Message,
		destinationChainID,
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}
