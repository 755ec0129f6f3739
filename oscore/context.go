package oscore

import (
	"sync"

	"github.com/GiterLab/go-oscore/coap"
)

// SecurityContext holds the long-lived state a sender maintains across
// outbound messages, per spec §3/§4.7. It embeds sync.Mutex: per spec §5,
// the caller is responsible for serializing concurrent use of a single
// context (lock it before calling Pipeline.Protect, unlock after). The
// context never takes its own lock internally, the same way
// GiterLab-go-coap/debug.go mutates its package-level debugEnable/GLog
// state through explicit setters rather than a hidden lock.
type SecurityContext struct {
	sync.Mutex

	alg   AEAD
	algID int64

	commonIV    [MaxNonceLen]byte
	commonIVLen int

	idContext    [MaxKIDContextLen]byte
	idContextLen int

	senderID    [MaxSenderIDLen]byte
	senderIDLen int

	senderKey    [MaxKeyLen]byte
	senderKeyLen int

	// SenderSeqNum is the next sequence number AcquireSenderPIV will
	// consume. Strictly monotonically increasing over sender_key's
	// lifetime; never reused, per spec §3.
	SenderSeqNum uint64

	requestPIV    [MaxPIVLen]byte
	requestPIVLen int

	requestKID    [MaxSenderIDLen]byte
	requestKIDLen int

	cachedNonce    [MaxNonceLen]byte
	cachedNonceLen int

	echoOptVal    [MaxEchoLen]byte
	echoOptValLen int

	// Reboot is true until CacheEcho sees the first response after restart
	// whose inner options carry an ECHO option; a response without ECHO
	// leaves it set.
	Reboot bool
}

// NewSecurityContext bootstraps a context from its Common/Sender fields.
// These are assumed already derived (by EDHOC or another out-of-scope
// collaborator, per spec §1); NewSecurityContext validates only their
// sizes against alg and this module's fixed bounds.
func NewSecurityContext(alg AEAD, algID int64, senderID, senderKey, commonIV, idContext []byte) (*SecurityContext, error) {
	if len(senderKey) != alg.KeyLen() {
		return nil, ErrInvalidSenderKey
	}
	if len(commonIV) != alg.NonceLen() {
		return nil, ErrInvalidCommonIV
	}
	if len(senderID) > MaxSenderIDLen {
		return nil, ErrIdTooLong
	}
	if len(idContext) > MaxKIDContextLen {
		return nil, ErrOscoreValueTooLong
	}

	c := &SecurityContext{alg: alg, algID: algID, Reboot: true}
	c.senderIDLen = copy(c.senderID[:], senderID)
	c.senderKeyLen = copy(c.senderKey[:], senderKey)
	c.commonIVLen = copy(c.commonIV[:], commonIV)
	c.idContextLen = copy(c.idContext[:], idContext)
	return c, nil
}

func (c *SecurityContext) Algorithm() AEAD   { return c.alg }
func (c *SecurityContext) AlgorithmID() int64 { return c.algID }
func (c *SecurityContext) SenderID() []byte  { return c.senderID[:c.senderIDLen] }
func (c *SecurityContext) SenderKey() []byte { return c.senderKey[:c.senderKeyLen] }
func (c *SecurityContext) CommonIV() []byte  { return c.commonIV[:c.commonIVLen] }
func (c *SecurityContext) IDContext() []byte { return c.idContext[:c.idContextLen] }

// AcquireSenderPIV atomically (with respect to this context, assuming the
// caller's external lock discipline) post-increments SenderSeqNum,
// returning the PIV derived from the pre-increment value, into pivOut.
// Per spec §4.7/§9, the sequence number is burned the instant this
// returns successfully: if a later pipeline step fails, SenderSeqNum is
// NOT rewound.
func (c *SecurityContext) AcquireSenderPIV(pivOut []byte) (int, error) {
	if c.SenderSeqNum >= MaxSeqNum {
		return 0, ErrSeqNumOverflow
	}
	n, err := EncodePIV(c.SenderSeqNum, pivOut)
	if err != nil {
		return n, err
	}
	c.SenderSeqNum++
	return n, nil
}

// RememberRequest stores piv/kid as the cached request_piv/request_kid,
// used by the response path to rebuild the same AAD. Called when the
// outbound message being protected is a request.
func (c *SecurityContext) RememberRequest(piv, kid []byte) {
	c.requestPIVLen = copy(c.requestPIV[:], piv)
	c.requestKIDLen = copy(c.requestKID[:], kid)
}

// RequestPIV returns the cached request_piv.
func (c *SecurityContext) RequestPIV() []byte { return c.requestPIV[:c.requestPIVLen] }

// RequestKID returns the cached request_kid.
func (c *SecurityContext) RequestKID() []byte { return c.requestKID[:c.requestKIDLen] }

// CacheNonce records the nonce used for the message just protected, so a
// subsequent response on the same exchange can reuse it without
// recomputing (spec §4.7 "nonce() ... stored in the cache").
func (c *SecurityContext) CacheNonce(nonce []byte) {
	c.cachedNonceLen = copy(c.cachedNonce[:], nonce)
}

// CachedNonce returns the most recently cached nonce.
func (c *SecurityContext) CachedNonce() []byte { return c.cachedNonce[:c.cachedNonceLen] }

// CacheEcho records the ECHO option (RFC 9175, option number 252) from
// innerOpts, but only while Reboot is still true and only the first such
// option found: the first ECHO-bearing response after a restart
// establishes the replay-window recovery value, and Reboot is cleared.
// Once Reboot is cleared, later calls are a no-op (spec §9 Open Questions).
func (c *SecurityContext) CacheEcho(innerOpts []coap.Option) {
	if !c.Reboot {
		return
	}
	for _, opt := range innerOpts {
		if opt.Number == ECHOOptionNumber {
			c.echoOptValLen = copy(c.echoOptVal[:], opt.Value)
			c.Reboot = false
			return
		}
	}
}

// EchoOptVal returns the cached ECHO value, if any.
func (c *SecurityContext) EchoOptVal() []byte { return c.echoOptVal[:c.echoOptValLen] }
