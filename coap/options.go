package coap

// Option numbers relevant to RFC 8613 §4.1 classification. This is the
// same option-number table carried by both GiterLab-go-coap/message.go and
// the other_examples GiterLab-go-secoap fork (RFC 7252 §5.10), narrowed to
// the numbers spec.md's classifier names.
const (
	IfMatch       uint16 = 1
	URIHost       uint16 = 3
	ETag          uint16 = 4
	IfNoneMatch   uint16 = 5
	Observe       uint16 = 6
	URIPort       uint16 = 7
	LocationPath  uint16 = 8
	OSCORE        uint16 = 9
	URIPath       uint16 = 11
	ContentFormat uint16 = 12
	MaxAge        uint16 = 14
	URIQuery      uint16 = 15
	Accept        uint16 = 17
	LocationQuery uint16 = 20
	Block2        uint16 = 23
	Block1        uint16 = 27
	Size2         uint16 = 28
	ProxyURI      uint16 = 35
	ProxyScheme   uint16 = 39
	Size1         uint16 = 60
)

// classE is the set of options that are encrypted ("inner") per RFC 8613
// §4.1. Observe is listed here too but handled specially by Split (it also
// appears in the outer set).
var classE = map[uint16]bool{
	IfMatch:       true,
	IfNoneMatch:   true,
	ETag:          true,
	Observe:       true,
	LocationPath:  true,
	URIPath:       true,
	ContentFormat: true,
	MaxAge:        true,
	URIQuery:      true,
	Accept:        true,
	LocationQuery: true,
	Block1:        true,
	Block2:        true,
	Size1:         true,
	Size2:         true,
}

// classU is the set of options that stay visible ("outer").
var classU = map[uint16]bool{
	URIHost:  true,
	URIPort:  true,
	ProxyURI: true,
	ProxyScheme: true,
	OSCORE:   true,
}

// Classification holds the inner (Class-E) and outer (Class-U) option sets
// produced by Split, plus the serialized length of the inner set (what the
// Plaintext Builder will emit). Fixed-size, no dynamic allocation.
type Classification struct {
	inner      [MaxOptionCount]Option
	numInner   int
	outer      [MaxOptionCount]Option
	numOuter   int
	InnerLen   int
}

// Inner returns the Class-E options, in ascending option-number order.
func (c *Classification) Inner() []Option { return c.inner[:c.numInner] }

// Outer returns the Class-U options, in ascending option-number order.
func (c *Classification) Outer() []Option { return c.outer[:c.numOuter] }

func (c *Classification) addInner(o Option) error {
	if c.numInner >= MaxOptionCount {
		return ErrTooManyOptions
	}
	c.inner[c.numInner] = o
	c.numInner++
	return nil
}

func (c *Classification) addOuter(o Option) error {
	if c.numOuter >= MaxOptionCount {
		return ErrTooManyOptions
	}
	c.outer[c.numOuter] = o
	c.numOuter++
	return nil
}

// Split partitions m's options into Class-E ("inner") and Class-U
// ("outer") sets per RFC 8613 §4.1, with the Observe special case:
// Observe (option 6) is placed in BOTH sets, carrying its original value
// in the inner set for requests and an empty value in the inner set for
// responses (outer always keeps the original value). Any option number in
// neither table is rejected with ErrUnknownOption.
func Split(m *Message) (Classification, error) {
	var c Classification
	for _, opt := range m.Options() {
		switch {
		case opt.Number == Observe:
			innerVal := opt.Value
			if !m.Code.IsRequest() {
				innerVal = nil
			}
			if err := c.addInner(Option{Number: Observe, Value: innerVal}); err != nil {
				return Classification{}, err
			}
			if err := c.addOuter(opt); err != nil {
				return Classification{}, err
			}
		case classE[opt.Number]:
			if err := c.addInner(opt); err != nil {
				return Classification{}, err
			}
		case classU[opt.Number]:
			if err := c.addOuter(opt); err != nil {
				return Classification{}, err
			}
		default:
			return Classification{}, ErrUnknownOption
		}
	}
	c.InnerLen = SerializedOptionsLen(c.Inner())
	return c, nil
}

// MarshalOptions writes opts (assumed in ascending Number order) as a
// sequence of delta/length/value TLVs into out, the same encoding
// Message.Marshal uses for a full message's option section. Returns the
// number of bytes written, or the number needed with ErrBufferTooSmall.
func MarshalOptions(opts []Option, out []byte) (int, error) {
	n := 0
	prev := 0
	for _, opt := range opts {
		hdr, err := MarshalOptionHeader(out[n:], int(opt.Number)-prev, len(opt.Value))
		if err != nil {
			return n + hdr + len(opt.Value), err
		}
		n += hdr
		if len(out) < n+len(opt.Value) {
			return n + len(opt.Value), ErrBufferTooSmall
		}
		copy(out[n:], opt.Value)
		n += len(opt.Value)
		prev = int(opt.Number)
	}
	return n, nil
}

// ParseOptionsAndPayload parses data as a bare option-section-plus-payload
// blob (no 4-byte header, no token) per RFC 7252 §3.1: the same delta/length
// TLV loop ParseMessage runs over a full packet's tail. Each option found is
// handed to add, in ascending option-number order; add may reject an option
// (e.g. ErrTooManyOptions, ErrUnknownOption) to abort the parse. Returns the
// payload (nil if data carries none). This is what the Plaintext Builder's
// encoding (BuildPlaintext) and a full Message's option section share the
// same shape, so both Message.Unmarshal and the decrypt path's plaintext
// parser call it.
func ParseOptionsAndPayload(data []byte, add func(Option) error) ([]byte, error) {
	b := data
	prev := 0
	for len(b) > 0 {
		if b[0] == 0xff {
			if len(b) == 1 {
				return nil, ErrInvalidPacket
			}
			return b[1:], nil
		}

		deltaNibble := int(b[0] >> 4)
		lengthNibble := int(b[0] & 0x0f)
		if deltaNibble == extError || lengthNibble == extError {
			return nil, ErrInvalidPacket
		}
		b = b[1:]

		delta, n, err := parseExt(b, deltaNibble)
		if err != nil {
			return nil, err
		}
		b = b[n:]

		length, n, err := parseExt(b, lengthNibble)
		if err != nil {
			return nil, err
		}
		b = b[n:]

		if len(b) < length {
			return nil, ErrInvalidPacket
		}
		number := prev + delta
		if number > 0xffff {
			return nil, ErrInvalidPacket
		}
		if err := add(Option{Number: uint16(number), Value: b[:length]}); err != nil {
			return nil, err
		}
		b = b[length:]
		prev = number
	}
	return nil, nil
}

// SerializedOptionsLen returns the exact number of bytes opts (assumed in
// ascending Number order, as Split and ParseMessage always produce) will
// occupy once serialized: header byte + delta/length extensions + value,
// summed, matching what Message.Marshal emits for the same option set.
func SerializedOptionsLen(opts []Option) int {
	total := 0
	prev := 0
	for _, opt := range opts {
		hdr, _ := MarshalOptionHeader(nil, int(opt.Number)-prev, len(opt.Value))
		total += hdr + len(opt.Value)
		prev = int(opt.Number)
	}
	return total
}
