package cctp

import (
	"encoding/binary"
)

// MessageVersion discriminates the two CCTP message header layouts this
// package decodes (spec.md §4.7.5-§4.7.6).
type MessageVersion uint32

const (
	MessageVersionV1 MessageVersion = 0
	MessageVersionV2 MessageVersion = 1
)

// Message is the fixed-layout CCTP message header plus, for a
// DepositForBurn body, its decoded fields (spec.md §4.7.5).
type Message struct {
	Version           MessageVersion
	SourceDomain      uint32
	DestinationDomain uint32
	Nonce             uint64 // v1 only; zero on v2 messages
	Sender            [32]byte
	Recipient         [32]byte

	BurnToken     [32]byte
	MintRecipient [32]byte
	Amount        [32]byte
	MessageSender [32]byte
}

const (
	offsetVersion           = 0
	offsetSourceDomain      = 4
	offsetDestinationDomain = 8
	offsetNonce             = 12
	offsetSender            = 20
	offsetRecipient         = 52
	offsetBody              = 116
	offsetBurnToken         = 120
	offsetMintRecipient     = 152
	offsetAmount            = 184
	offsetMessageSender     = 216
	minMessageLength        = offsetMessageSender + 32
)

// DecodeMessage parses the fixed-offset header and DepositForBurn body out
// of a raw CCTP message, per the byte layout of spec.md §4.7.5. The version
// byte (really a 4-byte big-endian word at offset 0) disambiguates v1 from
// v2; a nonce is only meaningful on v1 messages (spec.md §4.7.6).
func DecodeMessage(raw []byte) (Message, error) {
	if len(raw) < minMessageLength {
		return Message{}, errMessageTooShort
	}

	version := MessageVersion(binary.BigEndian.Uint32(raw[offsetVersion : offsetVersion+4]))
	if version != MessageVersionV1 && version != MessageVersionV2 {
		return Message{}, errUnknownVersion
	}

	m := Message{
		Version:           version,
		SourceDomain:      binary.BigEndian.Uint32(raw[offsetSourceDomain : offsetSourceDomain+4]),
		DestinationDomain: binary.BigEndian.Uint32(raw[offsetDestinationDomain : offsetDestinationDomain+4]),
	}
	copy(m.Sender[:], raw[offsetSender:offsetSender+32])
	copy(m.Recipient[:], raw[offsetRecipient:offsetRecipient+32])

	if version == MessageVersionV1 {
		m.Nonce = binary.BigEndian.Uint64(raw[offsetNonce:offsetSender])
	}

	copy(m.BurnToken[:], raw[offsetBurnToken:offsetBurnToken+32])
	copy(m.MintRecipient[:], raw[offsetMintRecipient:offsetMintRecipient+32])
	copy(m.Amount[:], raw[offsetAmount:offsetAmount+32])
	copy(m.MessageSender[:], raw[offsetMessageSender:offsetMessageSender+32])

	return m, nil
}
