package cctp

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Status is the per-attestation classification of spec.md §4.7.3.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusFinalized
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// NonceChecker reports whether the destination MessageTransmitter has
// already consumed a nonce hash (spec.md §4.7.3 "usedNonces(nonceHash) ==
// 1").
type NonceChecker interface {
	UsedNonce(ctx context.Context, nonceHash common.Hash) (bool, error)
}

// Classified is one attestation's outcome plus, for StatusReady, the
// payload needed to submit finalization.
type Classified struct {
	Attestation Attestation
	Status      Status
	Message     Message

	// MessageBytes and AttestationBytes are populated only for StatusReady.
	MessageBytes     []byte
	AttestationBytes []byte
}

// ExpectedParties is the set of sender/mintRecipient addresses a
// classified deposit must match; deposits matching neither are dropped
// entirely (spec.md §4.7.3 "drop attestations whose sender/mintRecipient
// matches none of the expected party addresses"). When both sets are empty
// no deposit is dropped.
type ExpectedParties struct {
	Senders        map[[32]byte]bool
	MintRecipients map[[32]byte]bool
}

// Classify applies the pending/ready/finalized rules of spec.md §4.7.3 to
// one attestation. It returns ok=false when the attestation should be
// dropped outright (wrong cctpVersion, or neither party matches).
func Classify(ctx context.Context, a Attestation, parties ExpectedParties, nonces NonceChecker) (Classified, bool, error) {
	if a.Raw.CCTPVersion != 2 {
		return Classified{}, false, nil
	}

	messageBytes, err := decodeHexField(a.Raw.Message)
	if err != nil {
		return Classified{}, false, err
	}
	msg, err := DecodeMessage(messageBytes)
	if err != nil {
		return Classified{}, false, err
	}

	if len(parties.Senders) > 0 || len(parties.MintRecipients) > 0 {
		if !parties.Senders[msg.Sender] && !parties.MintRecipients[msg.MintRecipient] {
			return Classified{}, false, nil
		}
	}

	status := a.Raw.Status
	if a.Raw.Attestation == "" || status == "pending_confirmations" || strings.EqualFold(a.Raw.Attestation, "PENDING") {
		return Classified{Attestation: a, Status: StatusPending, Message: msg}, true, nil
	}

	nonceHash := computeNonceHash(msg)
	used, err := nonces.UsedNonce(ctx, nonceHash)
	if err != nil {
		return Classified{}, false, err
	}
	if used {
		return Classified{Attestation: a, Status: StatusFinalized, Message: msg}, true, nil
	}

	attestationBytes, err := decodeHexField(a.Raw.Attestation)
	if err != nil {
		return Classified{}, false, err
	}

	return Classified{
		Attestation:      a,
		Status:           StatusReady,
		Message:          msg,
		MessageBytes:     messageBytes,
		AttestationBytes: attestationBytes,
	}, true, nil
}

// computeNonceHash derives the MessageTransmitter usedNonces key from a
// decoded message's source domain and sender, the scheme CCTP v2 uses to
// key nonce consumption per source rather than per raw nonce integer.
func computeNonceHash(msg Message) common.Hash {
	var buf [36]byte
	buf[0] = byte(msg.SourceDomain >> 24)
	buf[1] = byte(msg.SourceDomain >> 16)
	buf[2] = byte(msg.SourceDomain >> 8)
	buf[3] = byte(msg.SourceDomain)
	copy(buf[4:], msg.Sender[:])
	return crypto.Keccak256Hash(buf[:])
}

func decodeHexField(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

const messageTransmitterABI = `[
	{
		"name": "receiveMessage",
		"type": "function",
		"inputs": [
			{"name": "message", "type": "bytes"},
			{"name": "attestation", "type": "bytes"}
		],
		"outputs": [{"name": "success", "type": "bool"}]
	}
]`

var parsedMessageTransmitterABI = mustParseMessageTransmitterABI()

func mustParseMessageTransmitterABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(messageTransmitterABI))
	if err != nil {
		panic("cctp: invalid embedded MessageTransmitter ABI: " + err.Error())
	}
	return parsed
}

// FinalizationCalldata encodes destinationMessageTransmitter.receiveMessage(
// messageBytes, attestation) for a StatusReady Classified deposit (spec.md
// §4.7.4).
func FinalizationCalldata(c Classified) ([]byte, error) {
	return parsedMessageTransmitterABI.Pack("receiveMessage", c.MessageBytes, c.AttestationBytes)
}
