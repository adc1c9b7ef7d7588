// Package wire implements a schema-less protobuf wire format scanner.
//
// It turns a raw byte buffer into a flat sequence of typed field
// records without knowing anything about the messages encoded in it.
// Length-delimited fields are returned verbatim, not recursed into;
// interpreting sub-messages is the feed mapper's job.
package wire

import (
	"fmt"
	"math"
)

// Type is the low 3 bits of a field's tag byte.
type Type int

const (
	TypeVarint          Type = 0
	TypeFixed64         Type = 1
	TypeLengthDelimited Type = 2
	TypeFixed32         Type = 5
)

func (t Type) String() string {
	switch t {
	case TypeVarint:
		return "varint"
	case TypeFixed64:
		return "fixed64"
	case TypeLengthDelimited:
		return "length-delimited"
	case TypeFixed32:
		return "fixed32"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// MaxFields caps the number of records produced for one buffer, so a
// pathological input can't balloon memory.
const MaxFields = 100000

// Field is one decoded wire-format field. Exactly one of the value
// members is meaningful, depending on Type. A corrupt field has Err
// set and only Offset is reliable.
type Field struct {
	Offset int
	Number int32
	Type   Type

	Varint  uint64
	Float64 float64
	Float32 float32
	Bytes   []byte

	Err error
}

// Decode scans buf and returns every field it can make sense of. It
// is a pure function of its input: it never panics and never returns
// an error for malformed data. A field that can't be decoded yields a
// record with Err set, after which scanning resumes one byte later.
func Decode(buf []byte) []Field {
	fields := []Field{}
	i := 0

	for i < len(buf) && len(fields) < MaxFields {
		f := Field{Offset: i}

		tag, n := readUvarint(buf, i)
		if n == 0 {
			f.Err = fmt.Errorf("truncated tag at offset %d", i)
			fields = append(fields, f)
			i++
			continue
		}

		f.Number = int32(tag >> 3)
		f.Type = Type(tag & 0x7)
		next := i + n

		switch f.Type {
		case TypeVarint:
			v, vn := readUvarint(buf, next)
			if vn == 0 {
				f.Err = fmt.Errorf("truncated varint at offset %d", next)
			} else {
				f.Varint = v
				next += vn
			}

		case TypeFixed64:
			if next+8 > len(buf) {
				f.Err = fmt.Errorf("truncated fixed64 at offset %d", next)
			} else {
				f.Float64 = math.Float64frombits(le64(buf[next:]))
				next += 8
			}

		case TypeLengthDelimited:
			length, ln := readUvarint(buf, next)
			if ln == 0 || length > uint64(len(buf)) || next+ln+int(length) > len(buf) {
				f.Err = fmt.Errorf("truncated length-delimited field at offset %d", next)
			} else {
				next += ln
				f.Bytes = buf[next : next+int(length)]
				next += int(length)
			}

		case TypeFixed32:
			if next+4 > len(buf) {
				f.Err = fmt.Errorf("truncated fixed32 at offset %d", next)
			} else {
				f.Float32 = math.Float32frombits(le32(buf[next:]))
				next += 4
			}

		default:
			f.Err = fmt.Errorf("unsupported wire type %d at offset %d", int(f.Type), i)
		}

		fields = append(fields, f)

		if f.Err != nil {
			// Resync one byte past the bad tag and keep going.
			i++
			continue
		}
		i = next
	}

	return fields
}

// readUvarint reads a base-128 little-endian varint starting at
// buf[i]. Returns the value and the number of bytes consumed, or 0
// bytes if the varint is truncated or longer than 10 bytes.
func readUvarint(buf []byte, i int) (uint64, int) {
	var v uint64
	var shift uint
	for n := 0; n < 10 && i+n < len(buf); n++ {
		b := buf[i+n]
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, n + 1
		}
		shift += 7
	}
	return 0, 0
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}
