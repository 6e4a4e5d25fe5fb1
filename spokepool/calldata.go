package spokepool

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/relay-bridge/sdk-core/address"
	"github.com/relay-bridge/sdk-core/relaydata"
	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// spokePoolABI carries only the fragments this package encodes calls for;
// it is not a full SpokePool ABI.
const spokePoolABI = `[
	{
		"name": "fillRelay",
		"type": "function",
		"inputs": [
			{"name": "relayData", "type": "tuple", "components": [
				{"name": "depositor", "type": "bytes32"},
				{"name": "recipient", "type": "bytes32"},
				{"name": "exclusiveRelayer", "type": "bytes32"},
				{"name": "inputToken", "type": "bytes32"},
				{"name": "outputToken", "type": "bytes32"},
				{"name": "inputAmount", "type": "uint256"},
				{"name": "outputAmount", "type": "uint256"},
				{"name": "originChainId", "type": "uint256"},
				{"name": "depositId", "type": "uint256"},
				{"name": "fillDeadline", "type": "uint32"},
				{"name": "exclusivityDeadline", "type": "uint32"},
				{"name": "message", "type": "bytes"}
			]},
			{"name": "repaymentChainId", "type": "uint256"},
			{"name": "relayer", "type": "bytes32"}
		],
		"outputs": []
	},
	{
		"name": "fillRelayWithUpdatedDeposit",
		"type": "function",
		"inputs": [
			{"name": "relayData", "type": "tuple", "components": [
				{"name": "depositor", "type": "bytes32"},
				{"name": "recipient", "type": "bytes32"},
				{"name": "exclusiveRelayer", "type": "bytes32"},
				{"name": "inputToken", "type": "bytes32"},
				{"name": "outputToken", "type": "bytes32"},
				{"name": "inputAmount", "type": "uint256"},
				{"name": "outputAmount", "type": "uint256"},
				{"name": "originChainId", "type": "uint256"},
				{"name": "depositId", "type": "uint256"},
				{"name": "fillDeadline", "type": "uint32"},
				{"name": "exclusivityDeadline", "type": "uint32"},
				{"name": "message", "type": "bytes"}
			]},
			{"name": "repaymentChainId", "type": "uint256"},
			{"name": "relayer", "type": "bytes32"},
			{"name": "updatedOutputAmount", "type": "uint256"},
			{"name": "updatedRecipient", "type": "bytes32"},
			{"name": "updatedMessage", "type": "bytes"},
			{"name": "depositorSignature", "type": "bytes"}
		],
		"outputs": []
	},
	{
		"name": "multicall",
		"type": "function",
		"inputs": [{"name": "data", "type": "bytes[]"}],
		"outputs": [{"name": "results", "type": "bytes[]"}]
	},
	{
		"name": "fillStatuses",
		"type": "function",
		"inputs": [{"name": "relayHash", "type": "bytes32"}],
		"outputs": [{"name": "status", "type": "uint8"}]
	}
]`

var parsedSpokePoolABI = mustParseABI(spokePoolABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("spokepool: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

// relayDataTuple is the on-chain tuple shape fillRelay/fillRelayWithUpdatedDeposit
// expect: every address field normalized to its bytes32 view (spec.md
// §4.6.4 "All address fields are 32-byte-padded before encoding").
type relayDataTuple struct {
	Depositor           [32]byte
	Recipient           [32]byte
	ExclusiveRelayer    [32]byte
	InputToken          [32]byte
	OutputToken         [32]byte
	InputAmount         *big.Int
	OutputAmount        *big.Int
	OriginChainID       *big.Int
	DepositID           *big.Int
	FillDeadline        uint32
	ExclusivityDeadline uint32
	Message             []byte
}

func toTuple(r relaydata.RelayData) relayDataTuple {
	pad := func(a address.Address) [32]byte {
		var out [32]byte
		copy(out[:], a.Bytes())
		return out
	}
	return relayDataTuple{
		Depositor:           pad(r.Depositor),
		Recipient:           pad(r.Recipient),
		ExclusiveRelayer:    pad(r.ExclusiveRelayer),
		InputToken:          pad(r.InputToken),
		OutputToken:         pad(r.OutputToken),
		InputAmount:         r.InputAmount,
		OutputAmount:        r.OutputAmount,
		OriginChainID:       r.OriginChainID,
		DepositID:           r.DepositID,
		FillDeadline:        r.FillDeadline,
		ExclusivityDeadline: r.ExclusivityDeadline,
		Message:             r.Message,
	}
}

// SpeedUp carries the optional updated-deposit fields a depositor may
// countersign to raise a relayer's output amount post-deposit (spec.md
// §4.6.4).
type SpeedUp struct {
	Signature           []byte
	UpdatedRecipient    address.Address
	UpdatedOutputAmount *big.Int
	UpdatedMessage      []byte
}

// PopulateRelayTransaction assembles the calldata for filling data, per
// spec.md §4.6.4. repaymentChainID defaults to destinationChainID when nil.
// A non-nil speedUp requires UpdatedRecipient to be non-zero and routes
// through fillRelayWithUpdatedDeposit; otherwise fillRelay is used.
func PopulateRelayTransaction(data relaydata.RelayData, destinationChainID *big.Int, relayer address.Address, repaymentChainID *big.Int, speedUp *SpeedUp) ([]byte, error) {
	if repaymentChainID == nil {
		repaymentChainID = destinationChainID
	}

	var relayerBytes32 [32]byte
	copy(relayerBytes32[:], relayer.Bytes())

	tuple := toTuple(data)

	if speedUp == nil {
		return parsedSpokePoolABI.Pack("fillRelay", tuple, repaymentChainID, relayerBytes32)
	}

	if speedUp.UpdatedRecipient.IsZeroAddress() {
		return nil, rpcprovider.NewValidationError("ERR_SPEEDUP_RECIPIENT",
			"speed-up fill requires a non-zero updatedRecipient", nil)
	}
	if speedUp.UpdatedOutputAmount == nil {
		return nil, rpcprovider.NewValidationError("ERR_SPEEDUP_AMOUNT",
			"speed-up fill requires updatedOutputAmount", nil)
	}

	var updatedRecipientBytes32 [32]byte
	copy(updatedRecipientBytes32[:], speedUp.UpdatedRecipient.Bytes())

	return parsedSpokePoolABI.Pack("fillRelayWithUpdatedDeposit",
		tuple, repaymentChainID, relayerBytes32,
		speedUp.UpdatedOutputAmount, updatedRecipientBytes32, speedUp.UpdatedMessage, speedUp.Signature,
	)
}
