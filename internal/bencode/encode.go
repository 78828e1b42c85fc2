package bencode

import (
	"bytes"
	"fmt"
	"strconv"
)

// Encode serializes v in canonical form: dictionary keys are always sorted.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch tv := v.(type) {
	case Dict:
		buf.WriteByte('d')
		for _, k := range tv.Keys() {
			writeString(buf, []byte(k))
			writeValue(buf, tv[k])
		}
		buf.WriteByte('e')
	case List:
		buf.WriteByte('l')
		for _, item := range tv {
			writeValue(buf, item)
		}
		buf.WriteByte('e')
	case Integer:
		buf.WriteByte('i')
		buf.WriteString(tv.String())
		buf.WriteByte('e')
	case ByteString:
		writeString(buf, tv)
	default:
		panic(fmt.Sprintf("bencode: cannot encode %T", v))
	}
}

func writeString(buf *bytes.Buffer, s []byte) {
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.Write(s)
}
