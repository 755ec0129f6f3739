package oscore

import (
	"github.com/GiterLab/go-oscore/coap"
)

// Unprotect is the peer-side inverse of Protect: not part of the
// coap2oscore CORE (spec §1 scopes this module to the sender direction),
// but kept as a thin verification collaborator so the round-trip property
// (spec §8 P2) can be exercised without a second, independent
// implementation. It decrypts against the same SecurityContext Protect
// used, which is only meaningful for a security context that is its own
// peer (as in a test), never for a real two-party exchange.
//
// On success, returns the number of bytes written to out (the recovered
// outer message: header, outer options, decrypted inner options/payload
// merged back in place of the OSCORE option, exactly mirroring the input
// CoAP message shape Protect originally consumed).
func (p *Pipeline) Unprotect(input, out []byte) (int, error) {
	if isEmptyACK(input) {
		if len(out) < len(input) {
			return len(input), ErrBufferTooSmall
		}
		return copy(out, input), nil
	}

	msg, err := coap.ParseMessage(input)
	if err != nil {
		return 0, err
	}

	var oscoreVal []byte
	found := false
	var outer [coap.MaxOptionCount]coap.Option
	numOuter := 0
	for _, o := range msg.Options() {
		if o.Number == OSCOREOptionNumber {
			oscoreVal = o.Value
			found = true
			continue
		}
		outer[numOuter] = o
		numOuter++
	}
	if !found {
		return 0, ErrNoOSCOREOption
	}

	decoded, err := DecodeOption(oscoreVal)
	if err != nil {
		return 0, err
	}

	isRequest := msg.Code.IsRequest()

	var aadKID, aadPIV, nonce []byte
	var nonceBuf [MaxNonceLen]byte
	if decoded.Full {
		kid := decoded.KID
		if len(kid) == 0 {
			kid = p.Ctx.SenderID()
		}
		nonceLen, err := BuildNonce(p.Ctx.Algorithm().NonceLen(), kid, decoded.PIV, p.Ctx.CommonIV(), nonceBuf[:])
		if err != nil {
			return 0, err
		}
		nonce = nonceBuf[:nonceLen]
		p.Ctx.CacheNonce(nonce)
		aadKID, aadPIV = kid, decoded.PIV
		if isRequest {
			p.Ctx.RememberRequest(aadPIV, aadKID)
		}
	} else {
		nonce = p.Ctx.CachedNonce()
		aadKID = p.Ctx.RequestKID()
		aadPIV = p.Ctx.RequestPIV()
	}

	var aadBuf [MaxAADLen]byte
	aadLen, err := BuildAAD(p.Ctx.AlgorithmID(), aadKID, aadPIV, aadBuf[:])
	if err != nil {
		return 0, err
	}

	var ptBuf [MaxPlaintextLen]byte
	ptLen, err := p.Ctx.Algorithm().Decrypt(p.Ctx.SenderKey(), nonce, aadBuf[:aadLen], msg.Payload, ptBuf[:])
	if err != nil {
		return 0, err
	}
	if ptLen < 1 {
		return 0, ErrAead
	}

	innerCode := coap.Code(ptBuf[0])

	var om coap.Message
	om.Ver = msg.Ver
	om.Type = msg.Type
	om.Code = innerCode
	om.MessageID = msg.MessageID
	if err := om.SetToken(msg.Token()); err != nil {
		return 0, err
	}

	var inner [coap.MaxOptionCount]coap.Option
	numInner := 0
	payload, err := coap.ParseOptionsAndPayload(ptBuf[1:ptLen], func(o coap.Option) error {
		if numInner >= coap.MaxOptionCount {
			return coap.ErrTooManyOptions
		}
		inner[numInner] = o
		numInner++
		return nil
	})
	if err != nil {
		return 0, err
	}

	merged := mergeOptions(outer[:numOuter], inner[:numInner])
	for _, o := range merged {
		if err := om.AddOption(o.Number, o.Value); err != nil {
			return 0, err
		}
	}
	if !isRequest {
		p.Ctx.CacheEcho(inner[:numInner])
	}
	om.Payload = payload

	return om.Marshal(out)
}

// mergeOptions combines outer (Class-U, minus the OSCORE option itself)
// and inner (Class-E, decrypted) option sets back into a single ascending
// sequence, undoing Split/Assemble. Observe (present in both sets, per
// §4.1's duality) is taken from outer, which always carries the original
// value.
func mergeOptions(outer, inner []coap.Option) []coap.Option {
	var merged [coap.MaxOptionCount]coap.Option
	n := 0
	seen := make(map[uint16]bool, len(outer))
	for _, o := range outer {
		merged[n] = o
		n++
		seen[o.Number] = true
	}
	for _, o := range inner {
		if seen[o.Number] {
			continue
		}
		merged[n] = o
		n++
	}
	result := append([]coap.Option(nil), merged[:n]...)
	for i := 1; i < len(result); i++ {
		j := i
		for j > 0 && result[j-1].Number > result[j].Number {
			result[j-1], result[j] = result[j], result[j-1]
			j--
		}
	}
	return result
}
