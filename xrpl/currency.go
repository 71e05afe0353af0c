package xrpl

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCurrency = errors.New("invalid currency code")

// Currency is the 160 bit currency code of an issued token.
type Currency [20]byte

const allowedCurrencyChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789?!@#$%^&*<>(){}[]|"

// ParseCurrency accepts a three character ISO-style code or 40 hex
// characters for a non-standard code.
func ParseCurrency(code string) (Currency, error) {
	var c Currency

	switch len(code) {
	case 3:
		if code == "XRP" {
			return c, fmt.Errorf("%w: XRP is reserved for the native asset", ErrInvalidCurrency)
		}
		for _, ch := range code {
			if !strings.ContainsRune(allowedCurrencyChars, ch) {
				return c, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
			}
		}
		copy(c[12:15], code)
		return c, nil
	case 40:
		raw, err := hex.DecodeString(code)
		if err != nil {
			return c, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
		// a leading zero byte is reserved for the standard format
		if raw[0] == 0x00 {
			return c, fmt.Errorf("%w: non-standard code must not start with 0x00", ErrInvalidCurrency)
		}
		copy(c[:], raw)
		return c, nil
	default:
		return c, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
}

func (c Currency) isStandard() bool {
	for i, b := range c {
		if (i < 12 || i > 14) && b != 0 {
			return false
		}
	}
	return true
}

func (c Currency) String() string {
	if c.isStandard() {
		return string(c[12:15])
	}
	return strings.ToUpper(hex.EncodeToString(c[:]))
}

func (c Currency) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
