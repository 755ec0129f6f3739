package oscore

import "errors"

// Errors surfaced by the oscore package, per spec §7.
var (
	ErrBufferTooSmall     = errors.New("oscore: output buffer too small")
	ErrSeqNumOverflow     = errors.New("oscore: sender sequence number overflow")
	ErrIdTooLong          = errors.New("oscore: sender id too long for nonce length")
	ErrOscoreValueTooLong = errors.New("oscore: OSCORE option value exceeds cap")
	ErrAead               = errors.New("oscore: AEAD primitive failure")
	ErrInvalidPIV         = errors.New("oscore: partial IV exceeds maximum length")
	ErrInvalidCommonIV    = errors.New("oscore: common IV length does not match algorithm nonce length")
	ErrInvalidSenderKey   = errors.New("oscore: sender key length does not match algorithm key length")
	ErrNoOSCOREOption     = errors.New("oscore: inbound message carries no OSCORE option")
)
