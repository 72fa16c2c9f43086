// Package codec serializes diffs into the length-prefixed, big-endian v1
// wire format.
package codec

import "encoding/binary"

const (
	// Version is the wire format version written as the header byte.
	Version = 1

	initSize = 1024
)

// Encoder appends big-endian primitives to a growing buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	e := &Encoder{buf: make([]byte, 0, initSize)}
	e.U8(Version)
	return e
}

func (e *Encoder) U8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) U16(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) U32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) U64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

// String writes a u32 byte length followed by the raw bytes.
func (e *Encoder) String(s string) {
	e.U32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// Bytes writes a u32 length followed by the raw bytes.
func (e *Encoder) Bytes(b []byte) {
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// Buffer returns the encoded bytes including the header.
func (e *Encoder) Buffer() []byte {
	return e.buf
}

func (e *Encoder) Size() int {
	return len(e.buf)
}
