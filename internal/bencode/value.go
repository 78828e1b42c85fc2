package bencode

import (
	"bytes"
	"math/big"
	"slices"
	"strings"
)

type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dictionary"
	default:
		return "unknown"
	}
}

// Value is one of Integer, ByteString, List or Dict.
type Value interface {
	Kind() Kind
}

// Integer is an arbitrary-range signed integer. The zero value is 0.
type Integer struct {
	n *big.Int
}

func NewInt(n int64) Integer {
	return Integer{n: big.NewInt(n)}
}

// NewBigInt copies n.
func NewBigInt(n *big.Int) Integer {
	return Integer{n: new(big.Int).Set(n)}
}

func (Integer) Kind() Kind { return KindInteger }

// Int64 reports false when the value does not fit in an int64.
func (i Integer) Int64() (int64, bool) {
	if i.n == nil {
		return 0, true
	}
	if !i.n.IsInt64() {
		return 0, false
	}
	return i.n.Int64(), true
}

// Big returns a copy of the underlying integer.
func (i Integer) Big() *big.Int {
	if i.n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(i.n)
}

func (i Integer) String() string {
	if i.n == nil {
		return "0"
	}
	return i.n.String()
}

// ByteString is an opaque byte sequence, not necessarily valid UTF-8.
type ByteString []byte

func NewString(s string) ByteString {
	return ByteString(s)
}

func (ByteString) Kind() Kind { return KindString }

type List []Value

func (List) Kind() Kind { return KindList }

// StringList builds a list of byte strings.
func StringList(items ...string) List {
	l := make(List, len(items))
	for i, s := range items {
		l[i] = ByteString(s)
	}
	return l
}

// Dict maps raw byte-string keys to values. Go strings hold arbitrary bytes,
// so any key survives unchanged. Iteration order is irrelevant: encoding
// always walks Keys().
type Dict map[string]Value

func (Dict) Kind() Kind { return KindDict }

// CompareKeys is the canonical byte-lexicographic key order.
func CompareKeys(a, b string) int {
	return strings.Compare(a, b)
}

// Keys returns the keys of d in canonical order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)
	return keys
}

func (d Dict) GetString(key string) (string, bool) {
	b, ok := d[key].(ByteString)
	if !ok {
		return "", false
	}
	return string(b), true
}

func (d Dict) GetBytes(key string) ([]byte, bool) {
	b, ok := d[key].(ByteString)
	if !ok {
		return nil, false
	}
	return []byte(b), true
}

func (d Dict) GetInt(key string) (int64, bool) {
	i, ok := d[key].(Integer)
	if !ok {
		return 0, false
	}
	return i.Int64()
}

func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

func (d Dict) GetList(key string) (List, bool) {
	v, ok := d[key].(List)
	return v, ok
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Integer:
		bv, ok := b.(Integer)
		return ok && av.Big().Cmp(bv.Big()) == 0
	case ByteString:
		bv, ok := b.(ByteString)
		return ok && bytes.Equal(av, bv)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dict:
		bv, ok := b.(Dict)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch tv := v.(type) {
	case Integer:
		return NewBigInt(tv.Big())
	case ByteString:
		return ByteString(bytes.Clone(tv))
	case List:
		out := make(List, len(tv))
		for i := range tv {
			out[i] = Clone(tv[i])
		}
		return out
	case Dict:
		out := make(Dict, len(tv))
		for k, w := range tv {
			out[k] = Clone(w)
		}
		return out
	default:
		return v
	}
}
