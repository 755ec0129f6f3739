package oscore

import (
	"github.com/GiterLab/go-oscore/coap"
	"github.com/GiterLab/go-oscore/internal/oscorelog"
)

// Pipeline runs the coap2oscore state machine (spec §4) against a single
// SecurityContext. A Pipeline is not itself safe for concurrent use any
// more than its Ctx is: per spec §5, the caller serializes calls against
// one context, Protect never takes Ctx's lock internally.
type Pipeline struct {
	Ctx *SecurityContext
}

// NewPipeline returns a Pipeline bound to ctx.
func NewPipeline(ctx *SecurityContext) *Pipeline {
	return &Pipeline{Ctx: ctx}
}

// Protect transforms input, an unprotected outer CoAP message, into its
// OSCORE-protected form in out, returning the number of bytes written.
//
// Per spec §4.9, an empty ACK (code 0.00, type Acknowledgement) bypasses
// the pipeline entirely: it is copied verbatim, with no parse and no
// context mutation, since it carries no options or payload to protect.
//
// Otherwise the message runs PARSE -> CLASSIFY -> (PIV and nonce) ->
// BUILD_PT -> BUILD_AAD -> ENCRYPT -> GEN_OPT -> ASSEMBLE -> SERIALIZE, in
// that order. One boolean, fresh,
// governs both the OSCORE option's emission policy (§4.6: request,
// Observe or first-message-after-reboot emit a full option; a plain
// response emits an empty one) and the AAD/nonce source (§4.5: the same
// three cases use a freshly generated PIV and sender_id; a plain response
// reuses the cached request_kid/request_piv and the cached nonce).
func (p *Pipeline) Protect(input, out []byte) (int, error) {
	if isEmptyACK(input) {
		if len(out) < len(input) {
			return len(input), ErrBufferTooSmall
		}
		return copy(out, input), nil
	}

	msg, err := coap.ParseMessage(input)
	if err != nil {
		oscorelog.TraceError("oscore: parse failed: %v", err)
		return 0, err
	}

	classification, err := coap.Split(&msg)
	if err != nil {
		oscorelog.TraceError("oscore: classify failed: %v", err)
		return 0, err
	}

	isRequest := msg.Code.IsRequest()
	hasObserve := containsOption(classification.Outer(), coap.Observe)
	fresh := isRequest || hasObserve || p.Ctx.Reboot

	var pivBuf [MaxPIVLen]byte
	var pivLen int
	var aadKID, aadPIV, nonce []byte
	var nonceBuf [MaxNonceLen]byte

	if fresh {
		pivLen, err = p.Ctx.AcquireSenderPIV(pivBuf[:])
		if err != nil {
			oscorelog.TraceError("oscore: PIV acquisition failed: %v", err)
			return 0, err
		}

		nonceLen, err := BuildNonce(p.Ctx.Algorithm().NonceLen(), p.Ctx.SenderID(), pivBuf[:pivLen], p.Ctx.CommonIV(), nonceBuf[:])
		if err != nil {
			return 0, err
		}
		nonce = nonceBuf[:nonceLen]
		p.Ctx.CacheNonce(nonce)

		aadKID = p.Ctx.SenderID()
		aadPIV = pivBuf[:pivLen]
		if isRequest {
			p.Ctx.RememberRequest(aadPIV, aadKID)
		}
	} else {
		nonce = p.Ctx.CachedNonce()
		aadKID = p.Ctx.RequestKID()
		aadPIV = p.Ctx.RequestPIV()
	}

	var ptBuf [MaxPlaintextLen]byte
	ptLen, err := BuildPlaintext(msg.Code, classification.Inner(), msg.Payload, ptBuf[:])
	if err != nil {
		return 0, err
	}

	var aadBuf [MaxAADLen]byte
	aadLen, err := BuildAAD(p.Ctx.AlgorithmID(), aadKID, aadPIV, aadBuf[:])
	if err != nil {
		return 0, err
	}

	var ctBuf [MaxCiphertextLen]byte
	ctLen, err := p.Ctx.Algorithm().Encrypt(p.Ctx.SenderKey(), nonce, aadBuf[:aadLen], ptBuf[:ptLen], ctBuf[:])
	if err != nil {
		oscorelog.TraceError("oscore: encrypt failed: %v", err)
		return 0, err
	}

	var optBuf [OscoreOptionValueLen]byte
	var optLen int
	if fresh {
		optLen, err = EncodeOption(true, pivBuf[:pivLen], p.Ctx.SenderID(), p.Ctx.IDContext(), optBuf[:])
	} else {
		optLen, err = EncodeOption(false, nil, nil, nil, optBuf[:])
	}
	if err != nil {
		return 0, err
	}

	om, err := Assemble(&msg, classification.Outer(), optBuf[:optLen], ctBuf[:ctLen])
	if err != nil {
		return 0, err
	}

	n, err := om.Marshal(out)
	if err != nil {
		oscorelog.TraceError("oscore: assemble/marshal failed: %v", err)
		return n, err
	}

	oscorelog.TraceInfo("oscore: protected mid=%d fresh=%v seq=%d", msg.MessageID, fresh, p.Ctx.SenderSeqNum)
	return n, nil
}

// isEmptyACK reports whether input's wire header alone (independent of
// whether the rest of it would even parse) identifies it as the empty
// ACK bypassed by spec §4.9.
func isEmptyACK(input []byte) bool {
	if len(input) < 2 {
		return false
	}
	typ := coap.Type((input[0] >> 4) & 0x3)
	return typ == coap.Acknowledgement && coap.Code(input[1]).IsEmpty()
}

func containsOption(opts []coap.Option, number uint16) bool {
	for _, o := range opts {
		if o.Number == number {
			return true
		}
	}
	return false
}
