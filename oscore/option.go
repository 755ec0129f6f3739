package oscore

// OSCOREOptionNumber is the CoAP option number assigned to the OSCORE option
// (RFC 8613 §2).
const OSCOREOptionNumber uint16 = 9

// flag byte bits (RFC 8613 §6.1).
const (
	flagH = 1 << 4
	flagK = 1 << 3
	flagNMask = 0x07
)

// EncodeOption builds the OSCORE option value into out, per spec §4.6.
//
// When full is false (the "plain response" emission policy), the value is
// empty (length 0, h=k=n=0) and piv/kid/kidCtx are ignored.
//
// When full is true (request, Observe, or first message after reboot), the
// value is flag ∥ piv ∥ [len(kidCtx) ∥ kidCtx] ∥ kid, with k always set
// (even when kid is empty) and h set iff kidCtx is non-empty.
func EncodeOption(full bool, piv, kid, kidCtx, out []byte) (int, error) {
	if !full {
		return 0, nil
	}
	if len(piv) > MaxPIVLen {
		return 0, ErrInvalidPIV
	}

	need := 1 + len(piv) + len(kid)
	if len(kidCtx) > 0 {
		need += 1 + len(kidCtx)
	}
	if need > OscoreOptionValueLen {
		return need, ErrOscoreValueTooLong
	}
	if len(out) < need {
		return need, ErrBufferTooSmall
	}

	flag := byte(len(piv)) & flagNMask
	flag |= flagK
	if len(kidCtx) > 0 {
		flag |= flagH
	}

	idx := 0
	out[idx] = flag
	idx++
	idx += copy(out[idx:], piv)
	if len(kidCtx) > 0 {
		out[idx] = byte(len(kidCtx))
		idx++
		idx += copy(out[idx:], kidCtx)
	}
	idx += copy(out[idx:], kid)
	return idx, nil
}

// DecodedOption is an OSCORE option value as parsed by DecodeOption, per
// spec §4.6. An empty value decodes to the zero DecodedOption with
// Full=false.
type DecodedOption struct {
	Full  bool
	PIV   []byte
	KID   []byte
	KIDCtx []byte
}

func DecodeOption(value []byte) (DecodedOption, error) {
	if len(value) == 0 {
		return DecodedOption{}, nil
	}
	flag := value[0]
	n := int(flag & flagNMask)
	hasK := flag&flagK != 0
	hasH := flag&flagH != 0

	idx := 1
	if len(value) < idx+n {
		return DecodedOption{}, ErrOscoreValueTooLong
	}
	piv := value[idx : idx+n]
	idx += n

	var kidCtx []byte
	if hasH {
		if len(value) < idx+1 {
			return DecodedOption{}, ErrOscoreValueTooLong
		}
		l := int(value[idx])
		idx++
		if len(value) < idx+l {
			return DecodedOption{}, ErrOscoreValueTooLong
		}
		kidCtx = value[idx : idx+l]
		idx += l
	}

	var kid []byte
	if hasK {
		kid = value[idx:]
	}

	return DecodedOption{Full: true, PIV: piv, KID: kid, KIDCtx: kidCtx}, nil
}
