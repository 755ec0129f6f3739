package oscore

import "github.com/GiterLab/go-oscore/coap"

// Assemble builds the outer CoAP message per spec §4.8: header copied
// from in, code rewritten per the request/response x Observe table, outer
// (Class-U) options merged with the freshly built OSCORE option at its
// sorted position, and ciphertextAndTag as the payload.
func Assemble(in *coap.Message, outer []coap.Option, oscoreValue, ciphertextAndTag []byte) (coap.Message, error) {
	var om coap.Message
	om.Ver = in.Ver
	om.Type = in.Type
	om.MessageID = in.MessageID
	if err := om.SetToken(in.Token()); err != nil {
		return coap.Message{}, err
	}

	hasObserve := false
	for _, o := range outer {
		if o.Number == coap.Observe {
			hasObserve = true
			break
		}
	}
	om.Code = outerCode(in.Code, hasObserve)

	inserted := false
	for _, o := range outer {
		if !inserted && o.Number > OSCOREOptionNumber {
			if err := om.AddOption(OSCOREOptionNumber, oscoreValue); err != nil {
				return coap.Message{}, err
			}
			inserted = true
		}
		if err := om.AddOption(o.Number, o.Value); err != nil {
			return coap.Message{}, err
		}
	}
	if !inserted {
		if err := om.AddOption(OSCOREOptionNumber, oscoreValue); err != nil {
			return coap.Message{}, err
		}
	}

	om.Payload = ciphertextAndTag
	return om, nil
}

// outerCode rewrites the inner code to the fixed outer code RFC 8613 §4.2
// requires: 0.02 POST for requests (0.01 GET when Observe is present),
// 2.04 Changed for responses (2.05 Content when Observe is present).
func outerCode(in coap.Code, hasObserve bool) coap.Code {
	if in.IsRequest() {
		if hasObserve {
			return coap.GET
		}
		return coap.POST
	}
	if hasObserve {
		return coap.Content
	}
	return coap.Changed
}
