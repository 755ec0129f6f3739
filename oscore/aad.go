package oscore

import (
	"github.com/fxamacker/cbor/v2"
)

// oscoreVersion is the fixed OSCORE version field of external_aad
// (RFC 8613 §5.4).
const oscoreVersion = 1

var canonicalEnc = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err) // fixed, valid options; cannot fail
	}
	return em
}()

// externalAAD is RFC 8613 §5.4's external_aad, expressed as a CBOR array
// via a toarray struct the way other_examples' Jointeg-ubirch-cose-client
// cose_signer.go expresses COSE_Sign1/Sig_structure: a Go struct tagged
// `cbor:",toarray"` instead of hand-built CBOR items.
type externalAAD struct {
	_             struct{} `cbor:",toarray"`
	OscoreVersion uint64
	AeadAlg       [1]int64
	RequestKID    []byte
	RequestPIV    []byte
	Options       []byte
}

// encStructure is the COSE_Encrypt0 enc_structure (COSE RFC 8152 §5.3)
// that wraps external_aad before it becomes the AAD passed to the AEAD.
type encStructure struct {
	_           struct{} `cbor:",toarray"`
	Context     string
	Protected   []byte
	ExternalAAD []byte
}

// BuildAAD encodes the Encrypt0 enc_structure wrapping external_aad for
// (aeadAlgID, requestKID, requestPIV), per spec §4.5, writing the result
// into out and returning the number of bytes written.
func BuildAAD(aeadAlgID int64, requestKID, requestPIV, out []byte) (int, error) {
	ext := externalAAD{
		OscoreVersion: oscoreVersion,
		AeadAlg:       [1]int64{aeadAlgID},
		RequestKID:    requestKID,
		RequestPIV:    requestPIV,
		Options:       []byte{},
	}
	extBytes, err := canonicalEnc.Marshal(ext)
	if err != nil {
		return 0, err
	}

	enc := encStructure{
		Context:     "Encrypt0",
		Protected:   []byte{},
		ExternalAAD: extBytes,
	}
	aadBytes, err := canonicalEnc.Marshal(enc)
	if err != nil {
		return 0, err
	}

	if len(out) < len(aadBytes) {
		return len(aadBytes), ErrBufferTooSmall
	}
	return copy(out, aadBytes), nil
}
