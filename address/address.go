// Package address implements the cross-chain Address value type: a 32-byte
// canonical buffer with lazily-computed bytes32/20-byte/Base58/bigint
// projections, tagged by chain family at construction so no virtual dispatch
// is needed on the hot path (spec.md §4.8, §9).
package address

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Family tags which chain kind an Address was constructed for. The family is
// fixed at construction and never changes, so every projection method can
// switch on it directly instead of going through an interface.
type Family int

const (
	// EVM addresses must be coercible to 20 bytes (top 12 bytes zero).
	EVM Family = iota
	// SVM addresses occupy the full 32 bytes. The zero address is
	// permitted explicitly; any other value whose top 12 bytes are zero
	// is rejected to avoid colliding with the EVM address space.
	SVM
	// Raw addresses belong to neither family (Tezos, Zilliqa, Polkadot,
	// Stellar, ... chains this core never signs or derives for; see
	// SPEC_FULL.md domain stack table).
	Raw
)

func (f Family) String() string {
	switch f {
	case EVM:
		return "evm"
	case SVM:
		return "svm"
	default:
		return "raw"
	}
}

// Address is an immutable 32-byte canonical buffer with four lazily
// computed projections. No stored buffer ever exceeds 32 bytes; shorter
// buffers are left-padded with zeros at construction.
type Address struct {
	family Family
	buf    [32]byte

	once     sync.Once
	hex32    string
	bigInt   *big.Int
	base58   string
	base58ok bool
}

// ErrInvalidLength is returned when a source buffer exceeds 32 bytes.
type ErrInvalidLength struct {
	Got int
}

func (e *ErrInvalidLength) Error() string {
	return fmt.Sprintf("address: source buffer of %d bytes exceeds the 32-byte canonical width", e.Got)
}

// ErrEVMCollision is returned when constructing an SVM address whose leading
// 12 bytes are zero but which is not the all-zero address — such a value is
// indistinguishable from a padded 20-byte EVM address and is rejected to
// keep the two families from colliding.
var ErrEVMCollision = fmt.Errorf("address: 32-byte value has a zero 12-byte prefix but is not the zero address; ambiguous with an EVM address")

// ErrNotCoercibleToEVM is returned when a 32-byte value cannot be narrowed to
// a 20-byte EVM address (its top 12 bytes are non-zero).
var ErrNotCoercibleToEVM = fmt.Errorf("address: value is not coercible to a 20-byte EVM address")

func leftPad32(src []byte) ([32]byte, error) {
	var out [32]byte
	if len(src) > 32 {
		return out, &ErrInvalidLength{Got: len(src)}
	}
	copy(out[32-len(src):], src)
	return out, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// NewEVM constructs an EVM-family Address from raw bytes (any length up to
// 32, 20-byte addresses are the common case). Returns ErrNotCoercibleToEVM
// if a 32-byte source has non-zero bytes in its top 12 bytes.
func NewEVM(raw []byte) (Address, error) {
	buf, err := leftPad32(raw)
	if err != nil {
		return Address{}, err
	}
	if !isZero(buf[:12]) {
		return Address{}, ErrNotCoercibleToEVM
	}
	return Address{family: EVM, buf: buf}, nil
}

// NewSVM constructs an SVM-family Address from a full 32-byte buffer. The
// all-zero address is explicitly permitted (spec.md §4.8); any other value
// with a zero 12-byte prefix is rejected as an EVM-collision hazard.
func NewSVM(raw []byte) (Address, error) {
	buf, err := leftPad32(raw)
	if err != nil {
		return Address{}, err
	}
	if isZero(buf[:12]) && !isZero(buf[:]) {
		return Address{}, ErrEVMCollision
	}
	return Address{family: SVM, buf: buf}, nil
}

// NewRaw constructs a Raw-family Address: neither EVM- nor SVM-shaped,
// carried opaquely for chain families this core does not derive for.
func NewRaw(raw []byte) (Address, error) {
	buf, err := leftPad32(raw)
	if err != nil {
		return Address{}, err
	}
	return Address{family: Raw, buf: buf}, nil
}

// ParseEVM parses a "0x"-prefixed 20-byte (or 32-byte, already padded) hex
// string into an EVM Address.
func ParseEVM(s string) (Address, error) {
	if !common.IsHexAddress(s) && len(strings.TrimPrefix(s, "0x")) != 64 {
		return Address{}, fmt.Errorf("address: %q is not a valid EVM hex address", s)
	}
	b := common.FromHex(s)
	return NewEVM(b)
}

// ParseSVM parses a Base58-encoded Solana address into an SVM Address.
func ParseSVM(s string) (Address, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("address: invalid base58 SVM address %q: %w", s, err)
	}
	return NewSVM(decoded)
}

// Parse decodes s for the given family: EVM input is parsed as hex (see
// ParseEVM), SVM input as base58 (see ParseSVM), and Raw input as hex when
// it carries a "0x" prefix and as base58 otherwise. There is no explicit
// encoding parameter: EVM input is never read as base58 and SVM input is
// never read as hex.
func Parse(family Family, s string) (Address, error) {
	switch family {
	case EVM:
		return ParseEVM(s)
	case SVM:
		return ParseSVM(s)
	default:
		if strings.HasPrefix(s, "0x") {
			return NewRaw(common.FromHex(s))
		}
		decoded, err := base58.Decode(s)
		if err != nil {
			return Address{}, fmt.Errorf("address: %q is neither valid hex nor base58: %w", s, err)
		}
		return NewRaw(decoded)
	}
}

// Family reports the chain family this Address was constructed for.
func (a Address) Family() Family { return a.family }

// ToBytes32 returns the 32-byte left-padded canonical representation as a
// lowercase 0x-prefixed hex string. Computed once and memoized.
func (a *Address) ToBytes32() string {
	a.once.Do(a.computeLazy)
	return a.hex32
}

// TruncateToBytes20 returns the checksummed 20-byte EIP-55 hex address. Only
// valid when the top 12 bytes are zero (construction-time invariant for
// EVM addresses, spot-checked again here for Raw values that happen to be
// EVM-shaped).
func (a Address) TruncateToBytes20() (string, error) {
	if !isZero(a.buf[:12]) {
		return "", ErrNotCoercibleToEVM
	}
	return common.BytesToAddress(a.buf[12:]).Hex(), nil
}

// ToBase58 returns the Base58 encoding of the full 32-byte buffer.
func (a *Address) ToBase58() string {
	a.once.Do(a.computeLazy)
	return a.base58
}

// ToBigInteger returns the unsigned 256-bit integer view of the buffer.
func (a *Address) ToBigInteger() *big.Int {
	a.once.Do(a.computeLazy)
	return new(big.Int).Set(a.bigInt)
}

func (a *Address) computeLazy() {
	a.hex32 = "0x" + common.Bytes2Hex(a.buf[:])
	a.bigInt = new(big.Int).SetBytes(a.buf[:])
	a.base58 = base58.Encode(a.buf[:])
}

// ToNative renders the family-appropriate native representation: checksummed
// 20-byte hex for EVM, Base58 for SVM, 32-byte hex for Raw.
func (a *Address) ToNative() (string, error) {
	switch a.family {
	case EVM:
		return a.TruncateToBytes20()
	case SVM:
		// The all-zero SVM address is not a valid ed25519 curve point;
		// solana-go's PublicKey.String() still renders it (it is a pure
		// Base58 view), so route all SVM addresses through our own
		// Base58 projection rather than round-tripping through
		// solana.PublicKeyFromBytes, which is reserved for callers that
		// need an actual solana-go typed value (see AsSolanaPublicKey).
		return a.ToBase58(), nil
	default:
		return a.ToBytes32(), nil
	}
}

// AsSolanaPublicKey returns the solana-go typed PublicKey view of an SVM
// Address, for callers handing the value to solana-go RPC calls directly.
func (a Address) AsSolanaPublicKey() (solana.PublicKey, error) {
	if a.family != SVM {
		return solana.PublicKey{}, fmt.Errorf("address: AsSolanaPublicKey called on a %s address", a.family)
	}
	return solana.PublicKeyFromBytes(a.buf[:]), nil
}

// IsZeroAddress reports whether the canonical buffer is all zeros.
func (a Address) IsZeroAddress() bool {
	return isZero(a.buf[:])
}

// IsValidOn reports whether this Address is usable as a sender/recipient on
// the given chain family. Raw addresses are never valid on EVM or SVM
// chains; EVM/SVM addresses are valid only on their own family.
func (a Address) IsValidOn(family Family) bool {
	return a.family == family
}

// Eq reports whether two addresses share the same canonical buffer,
// irrespective of family tag (an EVM and a Raw address with the same
// underlying bytes compare equal).
func (a Address) Eq(b Address) bool {
	return a.buf == b.buf
}

// Compare orders two addresses numerically on their bytes32 view: -1, 0, 1.
func (a *Address) Compare(b *Address) int {
	return a.ToBigInteger().Cmp(b.ToBigInteger())
}

// Bytes returns a copy of the 32-byte canonical buffer.
func (a Address) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, a.buf[:])
	return out
}

// Bytes20 returns a copy of the low 20 bytes, for EVM ABI encoding call
// sites that need a raw []byte rather than the checksummed string.
func (a Address) Bytes20() []byte {
	out := make([]byte, 20)
	copy(out, a.buf[12:])
	return out
}
