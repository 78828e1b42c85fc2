package bencode

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
)

// MaxDepth bounds container nesting so hostile input cannot exhaust the stack.
const MaxDepth = 512

// FormatError reports a malformed byte stream.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bencode: %s (offset %d)", e.Msg, e.Offset)
}

// Decode parses exactly one value from data. Trailing bytes are an error.
func Decode(data []byte) (Value, error) {
	d := decoder{data: data}
	v, err := d.decode()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, d.errorf("could not fully decode bencode string")
	}
	return v, nil
}

type decoder struct {
	data  []byte
	pos   int
	depth int
}

func (d *decoder) errorf(format string, args ...any) error {
	return &FormatError{Offset: d.pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) decode() (Value, error) {
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input")
	}
	switch c := d.data[d.pos]; {
	case c == 'd':
		return d.decodeDict()
	case c == 'l':
		return d.decodeList()
	case c == 'i':
		return d.decodeInt()
	case c >= '0' && c <= '9':
		return d.decodeString()
	default:
		return nil, d.errorf("invalid character %q", c)
	}
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return d.errorf("nesting exceeds maximum depth of %d", MaxDepth)
	}
	return nil
}

func (d *decoder) decodeInt() (Integer, error) {
	d.pos++ // 'i'
	start := d.pos
	end := bytes.IndexByte(d.data[start:], 'e')
	if end < 0 {
		return Integer{}, d.errorf("unterminated integer")
	}
	body := string(d.data[start : start+end])
	if body == "-0" {
		return Integer{}, d.errorf("cannot have integer value -0")
	}
	digits := body
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if digits == "" {
		return Integer{}, d.errorf("empty integer")
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Integer{}, d.errorf("cannot have non-digit values in integer number: %s", body)
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return Integer{}, d.errorf("cannot have leading zeros in integer number: %s", body)
	}
	n, ok := new(big.Int).SetString(body, 10)
	if !ok {
		return Integer{}, d.errorf("invalid integer %s", body)
	}
	d.pos = start + end + 1
	return Integer{n: n}, nil
}

func (d *decoder) decodeString() (ByteString, error) {
	start := d.pos
	for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
		d.pos++
	}
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input in string length")
	}
	if d.data[d.pos] != ':' {
		return nil, d.errorf("invalid string length prefix %q", d.data[start:d.pos+1])
	}
	prefix := string(d.data[start:d.pos])
	if len(prefix) > 1 && prefix[0] == '0' {
		return nil, d.errorf("leading zeros in string length %s", prefix)
	}
	length, err := strconv.Atoi(prefix)
	if err != nil {
		return nil, d.errorf("invalid string length %s", prefix)
	}
	d.pos++ // ':'
	if length > len(d.data)-d.pos {
		return nil, d.errorf("string length %d exceeds remaining input", length)
	}
	s := make(ByteString, length)
	copy(s, d.data[d.pos:d.pos+length])
	d.pos += length
	return s, nil
}

func (d *decoder) decodeList() (List, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	d.pos++ // 'l'
	list := List{}
	for {
		if d.pos >= len(d.data) {
			return nil, d.errorf("unterminated list")
		}
		if d.data[d.pos] == 'e' {
			break
		}
		v, err := d.decode()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	d.pos++ // 'e'
	d.depth--
	return list, nil
}

func (d *decoder) decodeDict() (Dict, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	d.pos++ // 'd'
	dict := Dict{}
	for {
		if d.pos >= len(d.data) {
			return nil, d.errorf("unterminated dictionary")
		}
		if d.data[d.pos] == 'e' {
			break
		}
		keyPos := d.pos
		key, err := d.decode()
		if err != nil {
			return nil, err
		}
		k, ok := key.(ByteString)
		if !ok {
			return nil, &FormatError{Offset: keyPos, Msg: "invalid key type, must be string: " + key.Kind().String()}
		}
		v, err := d.decode()
		if err != nil {
			return nil, err
		}
		dict[string(k)] = v
	}
	d.pos++ // 'e'
	d.depth--
	return dict, nil
}
