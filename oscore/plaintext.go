package oscore

import "github.com/GiterLab/go-oscore/coap"

// BuildPlaintext emits code ∥ serialized(innerOpts) ∥ [0xFF ∥ payload]
// into out, per spec §4.3. The payload marker is written only when
// payload is non-empty.
func BuildPlaintext(code coap.Code, innerOpts []coap.Option, payload, out []byte) (int, error) {
	if len(out) < 1 {
		return 1, ErrBufferTooSmall
	}
	out[0] = byte(code)
	n := 1

	optN, err := coap.MarshalOptions(innerOpts, out[n:])
	n += optN
	if err != nil {
		return n, ErrBufferTooSmall
	}

	if len(payload) > 0 {
		if len(out) < n+1+len(payload) {
			return n + 1 + len(payload), ErrBufferTooSmall
		}
		out[n] = 0xff
		n++
		n += copy(out[n:], payload)
	}

	return n, nil
}
