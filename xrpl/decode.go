package xrpl

import (
	"encoding/binary"
	"fmt"
)

// Field is one decoded field of a serialized transaction.
type Field struct {
	Name   string
	Bytes  []byte
	Object Object
	Array  []Field
}

type Object []Field

func (o Object) Get(name string) (Field, bool) {
	for _, f := range o {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (o Object) Uint32(name string) (uint32, bool) {
	f, ok := o.Get(name)
	if !ok || len(f.Bytes) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(f.Bytes), true
}

func (o Object) Uint16(name string) (uint16, bool) {
	f, ok := o.Get(name)
	if !ok || len(f.Bytes) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(f.Bytes), true
}

func (o Object) Account(name string) (AccountID, bool) {
	var id AccountID
	f, ok := o.Get(name)
	if !ok || len(f.Bytes) != len(id) {
		return id, false
	}
	copy(id[:], f.Bytes)
	return id, true
}

func (o Object) Amount(name string) (Amount, bool) {
	f, ok := o.Get(name)
	if !ok {
		return Amount{}, false
	}
	a, err := decodeAmount(f.Bytes)
	return a, err == nil
}

// DecodedSigner is an entry of the Signers array of a signed blob.
type DecodedSigner struct {
	Account   AccountID
	PublicKey []byte
	Signature []byte
}

// Signers lists the Signers array in blob order.
func (o Object) Signers() []DecodedSigner {
	arr, ok := o.Get(fieldSigners.name)
	if !ok {
		return nil
	}

	signers := make([]DecodedSigner, 0, len(arr.Array))
	for _, el := range arr.Array {
		account, _ := el.Object.Account(fieldAccount.name)
		pubKey, _ := el.Object.Get(fieldSigningPubKey.name)
		sig, _ := el.Object.Get(fieldTxnSignature.name)
		signers = append(signers, DecodedSigner{Account: account, PublicKey: pubKey.Bytes, Signature: sig.Bytes})
	}
	return signers
}

// Decode parses a serialized transaction. Only the fields this package
// produces are known; anything else is an error.
func Decode(blob []byte) (Object, error) {
	obj, rest, err := decodeObject(blob, false)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(rest))
	}
	return obj, nil
}

func decodeHeader(data []byte) (field, int, error) {
	if len(data) == 0 {
		return field{}, 0, errShortInput
	}
	hi, lo := int(data[0]>>4), int(data[0]&0x0f)
	typ, nth, n := hi, lo, 1
	switch {
	case hi == 0 && lo == 0:
		if len(data) < 3 {
			return field{}, 0, errShortInput
		}
		typ, nth, n = int(data[1]), int(data[2]), 3
	case hi == 0:
		if len(data) < 2 {
			return field{}, 0, errShortInput
		}
		typ, n = int(data[1]), 2
	case lo == 0:
		if len(data) < 2 {
			return field{}, 0, errShortInput
		}
		nth, n = int(data[1]), 2
	}

	if typ == typeObject && nth == 1 || typ == typeArray && nth == 1 {
		return field{typ: typ, nth: nth}, n, nil
	}

	f, ok := knownFields[[2]int{typ, nth}]
	if !ok {
		return field{}, 0, fmt.Errorf("unknown field type %d code %d", typ, nth)
	}
	return f, n, nil
}

func decodeObject(data []byte, nested bool) (Object, []byte, error) {
	var obj Object
	for len(data) > 0 {
		f, n, err := decodeHeader(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]

		if f.typ == typeObject && f.nth == 1 {
			if !nested {
				return nil, nil, fmt.Errorf("unexpected object end marker")
			}
			return obj, data, nil
		}

		var decoded Field
		decoded, data, err = decodeValue(f, data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.name, err)
		}
		obj = append(obj, decoded)
	}

	if nested {
		return nil, nil, errShortInput
	}
	return obj, data, nil
}

func decodeValue(f field, data []byte) (Field, []byte, error) {
	out := Field{Name: f.name}

	take := func(n int) ([]byte, error) {
		if len(data) < n {
			return nil, errShortInput
		}
		b := data[:n]
		data = data[n:]
		return b, nil
	}

	var err error
	switch f.typ {
	case typeUInt16:
		out.Bytes, err = take(2)
	case typeUInt32:
		out.Bytes, err = take(4)
	case typeHash256:
		out.Bytes, err = take(32)
	case typeAmount:
		if len(data) > 0 && data[0]&0x80 != 0 {
			out.Bytes, err = take(48)
		} else {
			out.Bytes, err = take(8)
		}
	case typeBlob, typeAccountID:
		var l, n int
		l, n, err = decodeLength(data)
		if err == nil {
			data = data[n:]
			out.Bytes, err = take(l)
		}
	case typeObject:
		out.Object, data, err = decodeObject(data, true)
	case typeArray:
		out.Array, data, err = decodeArray(data)
	default:
		err = fmt.Errorf("unsupported type %d", f.typ)
	}
	return out, data, err
}

func decodeArray(data []byte) ([]Field, []byte, error) {
	var elems []Field
	for {
		f, n, err := decodeHeader(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]

		if f.typ == typeArray && f.nth == 1 {
			return elems, data, nil
		}
		if f.typ != typeObject {
			return nil, nil, fmt.Errorf("array element %s is not an object", f.name)
		}

		inner, rest, err := decodeObject(data, true)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.name, err)
		}
		data = rest
		elems = append(elems, Field{Name: f.name, Object: inner})
	}
}
