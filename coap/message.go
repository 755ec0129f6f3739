// Package coap implements the RFC 7252 wire codec and RFC 8613 §4.1
// Class-E/Class-U option classification that the OSCORE sender pipeline in
// package oscore is built on.
package coap

import (
	"encoding/binary"
)

// Type is the CoAP message type (RFC 7252 §3).
type Type uint8

const (
	Confirmable    Type = 0
	NonConfirmable Type = 1
	Acknowledgement Type = 2
	Reset          Type = 3
)

// Code is the CoAP method/response code, split into class.detail.
type Code uint8

// Request codes.
const (
	GET    Code = 1
	POST   Code = 2
	PUT    Code = 3
	DELETE Code = 4
)

// Response codes used by the outer-message code rewrite (§4.8).
const (
	Changed Code = 68 // 2.04
	Content Code = 69 // 2.05
)

// Class returns the code's class (c in c.dd).
func (c Code) Class() uint8 { return uint8(c) >> 5 }

// Detail returns the code's detail (dd in c.dd).
func (c Code) Detail() uint8 { return uint8(c) & 0x1f }

// IsRequest reports whether c falls in the 0.01-0.31 request range.
func (c Code) IsRequest() bool { return c.Class() == 0 && c != 0 }

// IsEmpty reports whether c is the empty message code 0.00.
func (c Code) IsEmpty() bool { return c == 0 }

const version = 1

// MaxTokenLen is the largest token length the wire format allows (TKL is a
// 4-bit field).
const MaxTokenLen = 8

// MaxOptionCount bounds the number of options a single message may carry.
// Fixed at compile time so Message never grows its option storage
// dynamically (spec's "no dynamic allocation" constraint).
const MaxOptionCount = 24

// Option is one CoAP option: an absolute option number and its value,
// borrowed as a sub-slice of the buffer the owning Message was parsed from
// (or, for a message built programmatically, of whatever buffer the caller
// supplied to AddOption). Values are never copied by this package.
type Option struct {
	Number uint16
	Value  []byte
}

// Message is a parsed or programmatically constructed CoAP message. A
// Message produced by ParseMessage borrows its Payload and Option values
// from the input buffer (the input must outlive the Message); the token is
// copied into the Message's fixed token storage.
type Message struct {
	Ver       uint8
	Type      Type
	Code      Code
	MessageID uint16

	tokenBuf [MaxTokenLen]byte
	tokenLen int

	Payload []byte

	options    [MaxOptionCount]Option
	numOptions int
}

// Token returns the message token.
func (m *Message) Token() []byte { return m.tokenBuf[:m.tokenLen] }

// SetToken copies tok (which must be <= MaxTokenLen bytes) into the
// message's fixed token storage.
func (m *Message) SetToken(tok []byte) error {
	if len(tok) > MaxTokenLen {
		return ErrInvalidTokenLen
	}
	m.tokenLen = copy(m.tokenBuf[:], tok)
	return nil
}

// Options returns the message's options, sorted ascending by Number.
func (m *Message) Options() []Option { return m.options[:m.numOptions] }

// AddOption appends an option. Options must be added in ascending Number
// order; AddOption does not sort. Returns ErrTooManyOptions past
// MaxOptionCount.
func (m *Message) AddOption(number uint16, value []byte) error {
	if m.numOptions >= MaxOptionCount {
		return ErrTooManyOptions
	}
	m.options[m.numOptions] = Option{Number: number, Value: value}
	m.numOptions++
	return nil
}

// extension codes for the option-header delta/length nibbles (RFC 7252 §3.1).
const (
	extByteCode   = 13
	extByteAddend = 13
	extWordCode   = 14
	extWordAddend = 269
	extError      = 15
)

// extend splits a delta or length value into its 4-bit nibble code and the
// extension value (0, 1 or 2 bytes) that must follow it.
func extend(v int) (nibble, ext int) {
	switch {
	case v >= extWordAddend:
		return extWordCode, v - extWordAddend
	case v >= extByteAddend:
		return extByteCode, v - extByteAddend
	default:
		return v, 0
	}
}

// writeExt writes the 0/1/2-byte extension for nibble into buf, returning
// the number of bytes it needs (written only if buf is large enough).
func writeExt(buf []byte, nibble, ext int) (int, error) {
	switch nibble {
	case extByteCode:
		if len(buf) < 1 {
			return 1, ErrBufferTooSmall
		}
		buf[0] = byte(ext)
		return 1, nil
	case extWordCode:
		if len(buf) < 2 {
			return 2, ErrBufferTooSmall
		}
		binary.BigEndian.PutUint16(buf, uint16(ext))
		return 2, nil
	default:
		return 0, nil
	}
}

// MarshalOptionHeader writes the one-byte delta/length nibble header plus
// any delta/length extensions into buf, returning the number of bytes
// written (or needed, on ErrBufferTooSmall).
func MarshalOptionHeader(buf []byte, delta, length int) (int, error) {
	dn, dx := extend(delta)
	ln, lx := extend(length)

	need := 1
	if len(buf) < 1 {
		return need + sizeExt(dn) + sizeExt(ln), ErrBufferTooSmall
	}
	buf[0] = byte(dn<<4) | byte(ln)

	n, err := writeExt(buf[need:], dn, dx)
	need += n
	if err != nil {
		return need + sizeExt(ln), err
	}

	n, err = writeExt(buf[need:], ln, lx)
	need += n
	if err != nil {
		return need, err
	}
	return need, nil
}

func sizeExt(nibble int) int {
	switch nibble {
	case extByteCode:
		return 1
	case extWordCode:
		return 2
	default:
		return 0
	}
}

// Marshal serializes m into out per RFC 7252 §3, returning the number of
// bytes written. Returns ErrBufferTooSmall (with no partial write the
// caller should transmit) if out cannot hold the result.
func (m *Message) Marshal(out []byte) (int, error) {
	tok := m.Token()
	need := 4 + len(tok)
	if len(out) < need {
		return need, ErrBufferTooSmall
	}

	out[0] = (version << 6) | (uint8(m.Type) << 4) | uint8(len(tok)&0xf)
	out[1] = byte(m.Code)
	binary.BigEndian.PutUint16(out[2:4], m.MessageID)
	copy(out[4:], tok)

	n := need
	optN, err := MarshalOptions(m.Options(), out[n:])
	n += optN
	if err != nil {
		return n, err
	}

	if len(m.Payload) > 0 {
		if len(out) < n+1+len(m.Payload) {
			return n + 1 + len(m.Payload), ErrBufferTooSmall
		}
		out[n] = 0xff
		n++
		copy(out[n:], m.Payload)
		n += len(m.Payload)
	}

	return n, nil
}

// ParseMessage parses data as a CoAP message. The returned Message's
// Payload and option values are views into data; data must outlive it. The
// token is copied.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := m.Unmarshal(data); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Unmarshal parses data into m, per ParseMessage.
func (m *Message) Unmarshal(data []byte) error {
	*m = Message{}

	if len(data) < 4 {
		return ErrInvalidPacket
	}
	if data[0]>>6 != version {
		return ErrInvalidPacket
	}

	m.Ver = version
	m.Type = Type((data[0] >> 4) & 0x3)
	tkl := int(data[0] & 0xf)
	if tkl > MaxTokenLen {
		return ErrInvalidTokenLen
	}
	m.Code = Code(data[1])
	m.MessageID = binary.BigEndian.Uint16(data[2:4])

	if len(data) < 4+tkl {
		return ErrInvalidPacket
	}
	if err := m.SetToken(data[4 : 4+tkl]); err != nil {
		return err
	}

	payload, err := ParseOptionsAndPayload(data[4+tkl:], func(o Option) error {
		return m.AddOption(o.Number, o.Value)
	})
	if err != nil {
		return err
	}
	m.Payload = payload
	return nil
}

// parseExt resolves a delta/length nibble into its real value, consuming
// any 1/2-byte extension from the front of b.
func parseExt(b []byte, nibble int) (value, consumed int, err error) {
	switch nibble {
	case extByteCode:
		if len(b) < 1 {
			return 0, 0, ErrInvalidPacket
		}
		return int(b[0]) + extByteAddend, 1, nil
	case extWordCode:
		if len(b) < 2 {
			return 0, 0, ErrInvalidPacket
		}
		return int(binary.BigEndian.Uint16(b[:2])) + extWordAddend, 2, nil
	default:
		return nibble, 0, nil
	}
}
