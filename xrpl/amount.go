package xrpl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

const (
	// MaxDrops is the total XRP supply expressed in drops.
	MaxDrops uint64 = 100_000_000_000_000_000

	minMantissa uint64 = 1_000_000_000_000_000
	maxMantissa uint64 = 9_999_999_999_999_999
	minExponent        = -96
	maxExponent        = 80

	amountIssuedBit   uint64 = 1 << 63
	amountPositiveBit uint64 = 1 << 62
)

var (
	ErrZeroAmount         = errors.New("amount must be positive")
	ErrAmountOutOfRange   = errors.New("amount is out of the representable range")
	ErrAmountNotCanonical = errors.New("token value is not canonical")
)

// TokenValue is a normalised issued-currency value: Mantissa * 10^Exponent.
type TokenValue struct {
	Mantissa uint64 `json:"mantissa"`
	Exponent int    `json:"exponent"`
}

// NewTokenValue converts an integer amount with the given number of
// decimals. Digits beyond the 16 significant digits the ledger keeps are
// truncated.
func NewTokenValue(amount *big.Int, decimals uint8) (TokenValue, error) {
	if amount == nil || amount.Sign() <= 0 {
		return TokenValue{}, ErrZeroAmount
	}

	m := new(big.Int).Set(amount)
	exp := -int(decimals)

	ten := big.NewInt(10)
	upper := new(big.Int).SetUint64(maxMantissa)
	for m.Cmp(upper) > 0 {
		m.Quo(m, ten)
		exp++
	}

	mantissa := m.Uint64()
	for mantissa < minMantissa {
		mantissa *= 10
		exp--
	}

	v := TokenValue{Mantissa: mantissa, Exponent: exp}
	if err := v.validate(); err != nil {
		return TokenValue{}, err
	}
	return v, nil
}

func (v TokenValue) validate() error {
	if v.Mantissa < minMantissa || v.Mantissa > maxMantissa {
		return ErrAmountNotCanonical
	}
	if v.Exponent < minExponent || v.Exponent > maxExponent {
		return fmt.Errorf("%w: exponent %d", ErrAmountOutOfRange, v.Exponent)
	}
	return nil
}

func (v TokenValue) String() string {
	return fmt.Sprintf("%de%d", v.Mantissa, v.Exponent)
}

// IssuedAmount is a non-native amount.
type IssuedAmount struct {
	Value    TokenValue `json:"value"`
	Currency Currency   `json:"currency"`
	Issuer   AccountID  `json:"issuer"`
}

// Amount is either a native amount in drops or an issued amount.
type Amount struct {
	Drops  uint64        `json:"drops,omitempty"`
	Issued *IssuedAmount `json:"issued,omitempty"`
}

func NativeAmount(drops uint64) (Amount, error) {
	if drops == 0 {
		return Amount{}, ErrZeroAmount
	}
	if drops > MaxDrops {
		return Amount{}, fmt.Errorf("%w: %d drops", ErrAmountOutOfRange, drops)
	}
	return Amount{Drops: drops}, nil
}

func IssuedTokenAmount(value TokenValue, currency Currency, issuer AccountID) (Amount, error) {
	if err := value.validate(); err != nil {
		return Amount{}, err
	}
	return Amount{Issued: &IssuedAmount{Value: value, Currency: currency, Issuer: issuer}}, nil
}

func (a Amount) IsNative() bool {
	return a.Issued == nil
}

func (a Amount) String() string {
	if a.IsNative() {
		return fmt.Sprintf("%d drops", a.Drops)
	}
	return fmt.Sprintf("%s %s/%s", a.Issued.Value, a.Issued.Currency, a.Issued.Issuer)
}

func (a Amount) encode() []byte {
	if a.IsNative() {
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, a.Drops|amountPositiveBit)
		return out
	}

	v := a.Issued.Value
	out := make([]byte, 8, 48)
	bits := amountIssuedBit | amountPositiveBit | uint64(v.Exponent+97)<<54 | v.Mantissa
	binary.BigEndian.PutUint64(out, bits)
	out = append(out, a.Issued.Currency[:]...)
	out = append(out, a.Issued.Issuer[:]...)
	return out
}

func decodeAmount(raw []byte) (Amount, error) {
	if len(raw) < 8 {
		return Amount{}, errors.New("short amount")
	}
	bits := binary.BigEndian.Uint64(raw[:8])
	if bits&amountIssuedBit == 0 {
		return Amount{Drops: bits &^ amountPositiveBit}, nil
	}
	if len(raw) != 48 {
		return Amount{}, errors.New("short issued amount")
	}

	issued := &IssuedAmount{
		Value: TokenValue{
			Mantissa: bits & (1<<54 - 1),
			Exponent: int((bits>>54)&0xff) - 97,
		},
	}
	copy(issued.Currency[:], raw[8:28])
	copy(issued.Issuer[:], raw[28:48])
	return Amount{Issued: issued}, nil
}
