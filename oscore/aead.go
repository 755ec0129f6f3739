package oscore

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
)

// AEAD is the capability interface the pipeline consumes for authenticated
// encryption, per spec §6 and §9 "Dynamic dispatch of AEAD": a small table
// of fixed parameters plus a synchronous Encrypt/Decrypt pair. No runtime
// polymorphism beyond this interface is required.
type AEAD interface {
	// Name returns a human-readable algorithm name. The AAD's aead_alg
	// field does not use it: BuildAAD takes the integer identifier held by
	// SecurityContext (AlgorithmID).
	Name() string
	KeyLen() int
	NonceLen() int
	TagLen() int

	// Encrypt seals plaintext under key/nonce/aad, writing ciphertext||tag
	// into out and returning the number of bytes written. Returns
	// ErrBufferTooSmall if out cannot hold the result, ErrAead on any
	// other primitive failure (e.g. a key of the wrong length).
	Encrypt(key, nonce, aad, plaintext, out []byte) (int, error)

	// Decrypt opens ciphertext||tag under key/nonce/aad, writing the
	// recovered plaintext into out. Returns ErrAead if authentication
	// fails.
	Decrypt(key, nonce, aad, ciphertextAndTag, out []byte) (int, error)
}

// AESCCM16_64_128 is RFC 8613's default algorithm: AES-128 in CCM mode
// with a 13-byte nonce and an 8-byte (64-bit) authentication tag. There is
// no CCM mode in Go's standard crypto/cipher package (only GCM, CBC, CTR,
// OFB, CFB) and no CCM implementation anywhere in the retrieval pack, so
// this builds CCM (RFC 3610) directly on crypto/aes's raw block cipher —
// see DESIGN.md for the justification.
var AESCCM16_64_128 AEAD = aesCCM{keyLen: 16, nonceLen: 13, tagLen: 8}

type aesCCM struct {
	keyLen, nonceLen, tagLen int
}

func (a aesCCM) Name() string  { return "AES-CCM-16-64-128" }
func (a aesCCM) KeyLen() int   { return a.keyLen }
func (a aesCCM) NonceLen() int { return a.nonceLen }
func (a aesCCM) TagLen() int   { return a.tagLen }

// lParam is CCM's "L" parameter: the byte length of the message-length
// field in the formatting. nonceLen + L = 15, so a 13-byte nonce gives
// L = 2 (RFC 3610 §2.1).
func (a aesCCM) lParam() int { return 15 - a.nonceLen }

func (a aesCCM) Encrypt(key, nonce, aad, plaintext, out []byte) (int, error) {
	need := len(plaintext) + a.tagLen
	if len(out) < need {
		return need, ErrBufferTooSmall
	}
	if len(key) != a.keyLen || len(nonce) != a.nonceLen {
		return 0, ErrAead
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, ErrAead
	}

	tag, err := a.cbcMAC(block, nonce, aad, plaintext)
	if err != nil {
		return 0, err
	}

	ciphertext := out[:len(plaintext)]
	a.ctrCrypt(block, nonce, 1, plaintext, ciphertext)

	encryptedTag := make([]byte, a.tagLen)
	a.ctrCrypt(block, nonce, 0, tag, encryptedTag) // counter 0 block is S_0, used to mask the tag (RFC 3610 §2.3)
	copy(out[len(plaintext):need], encryptedTag)

	return need, nil
}

func (a aesCCM) Decrypt(key, nonce, aad, ciphertextAndTag, out []byte) (int, error) {
	if len(ciphertextAndTag) < a.tagLen {
		return 0, ErrAead
	}
	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-a.tagLen]
	gotTag := ciphertextAndTag[len(ciphertextAndTag)-a.tagLen:]

	if len(out) < len(ciphertext) {
		return len(ciphertext), ErrBufferTooSmall
	}
	if len(key) != a.keyLen || len(nonce) != a.nonceLen {
		return 0, ErrAead
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, ErrAead
	}

	plaintext := out[:len(ciphertext)]
	a.ctrCrypt(block, nonce, 1, ciphertext, plaintext)

	tag, err := a.cbcMAC(block, nonce, aad, plaintext)
	if err != nil {
		return 0, err
	}
	encryptedTag := make([]byte, a.tagLen)
	a.ctrCrypt(block, nonce, 0, tag, encryptedTag)

	if subtle.ConstantTimeCompare(encryptedTag, gotTag) != 1 {
		return 0, ErrAead
	}
	return len(ciphertext), nil
}

// ctrBlock builds the CCM counter block (A_i in RFC 3610 §2.3) for block
// index ctr: flag byte (L-1 in low bits) | nonce | counter (L bytes,
// big-endian).
func (a aesCCM) ctrBlock(nonce []byte, ctr uint64) [16]byte {
	var blk [16]byte
	l := a.lParam()
	blk[0] = byte(l - 1)
	copy(blk[1:], nonce)
	var ctrBytes [8]byte
	binary.BigEndian.PutUint64(ctrBytes[:], ctr)
	copy(blk[16-l:], ctrBytes[8-l:])
	return blk
}

// ctrCrypt XORs in against the AES-CTR keystream generated from ctrBlock
// starting at counter startCtr, writing the result to out. Counter 0 (S_0)
// is reserved for masking the MAC; ciphertext keystream starts at counter
// 1. Used symmetrically for encrypt and decrypt.
func (a aesCCM) ctrCrypt(block interface{ Encrypt(dst, src []byte) }, nonce []byte, startCtr uint64, in, out []byte) {
	var ks [16]byte
	ctr := startCtr
	for off := 0; off < len(in); off += 16 {
		blk := a.ctrBlock(nonce, ctr)
		block.Encrypt(ks[:], blk[:])
		n := 16
		if off+n > len(in) {
			n = len(in) - off
		}
		for i := 0; i < n; i++ {
			out[off+i] = in[off+i] ^ ks[i]
		}
		ctr++
	}
}

// cbcMAC computes the CCM authentication value (RFC 3610 §2.2): CBC-MAC
// over B_0 (flags | nonce | message length) ∥ encoded AAD length-prefix ∥
// AAD (zero-padded to a block boundary) ∥ plaintext (zero-padded),
// truncated to tagLen bytes. The result still needs XOR-masking with S_0
// by the caller (done via ctrCrypt with startCtr 0).
func (a aesCCM) cbcMAC(block interface{ Encrypt(dst, src []byte) }, nonce, aad, plaintext []byte) ([]byte, error) {
	l := a.lParam()
	if len(plaintext) >= 1<<(8*l) {
		return nil, ErrAead
	}

	var b0 [16]byte
	flags := byte(l - 1)
	if len(aad) > 0 {
		flags |= 0x40
	}
	flags |= byte((a.tagLen-2)/2) << 3
	b0[0] = flags
	copy(b0[1:], nonce)
	var lenBytes [8]byte
	binary.BigEndian.PutUint64(lenBytes[:], uint64(len(plaintext)))
	copy(b0[16-l:], lenBytes[8-l:])

	var mac [16]byte
	block.Encrypt(mac[:], b0[:])

	xorBlock := func(data []byte) {
		for off := 0; off < len(data); off += 16 {
			var chunk [16]byte
			n := copy(chunk[:], data[off:])
			_ = n
			for i := 0; i < 16; i++ {
				mac[i] ^= chunk[i]
			}
			block.Encrypt(mac[:], mac[:])
		}
	}

	if len(aad) > 0 {
		var aadLenPrefix []byte
		switch {
		case len(aad) < 0xff00:
			aadLenPrefix = []byte{byte(len(aad) >> 8), byte(len(aad))}
		default:
			aadLenPrefix = []byte{0xff, 0xfe, 0, 0, 0, 0}
			binary.BigEndian.PutUint32(aadLenPrefix[2:], uint32(len(aad)))
		}
		padded := paddedConcat(aadLenPrefix, aad)
		xorBlock(padded)
	}

	if len(plaintext) > 0 {
		xorBlock(padTo16(plaintext))
	}

	return append([]byte(nil), mac[:a.tagLen]...), nil
}

// padTo16 returns data zero-padded to a multiple of 16 bytes, copying only
// when padding is actually needed.
func padTo16(data []byte) []byte {
	rem := len(data) % 16
	if rem == 0 {
		return data
	}
	out := make([]byte, len(data)+16-rem)
	copy(out, data)
	return out
}

// paddedConcat concatenates prefix and data and zero-pads the result to a
// 16-byte boundary.
func paddedConcat(prefix, data []byte) []byte {
	total := len(prefix) + len(data)
	rem := total % 16
	if rem != 0 {
		total += 16 - rem
	}
	out := make([]byte, total)
	copy(out, prefix)
	copy(out[len(prefix):], data)
	return out
}
