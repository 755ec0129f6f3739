package oscore

import "encoding/binary"

// EncodePIV writes the minimal big-endian encoding of seq (the Partial IV)
// into out, per spec §4.4: no leading zero bytes except when seq is zero,
// in which case the encoding is a single 0x00 byte. Returns the number of
// bytes written, or ErrSeqNumOverflow if seq is outside [0, 2^40).
func EncodePIV(seq uint64, out []byte) (int, error) {
	if seq >= MaxSeqNum {
		return 0, ErrSeqNumOverflow
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], seq)

	b := tmp[3:] // low 40 bits
	i := 0
	for i < len(b)-1 && b[i] == 0 {
		i++
	}
	piv := b[i:]
	if len(out) < len(piv) {
		return len(piv), ErrBufferTooSmall
	}
	return copy(out, piv), nil
}

// BuildNonce derives the AEAD nonce for (senderID, piv) under commonIV, per
// spec §4.4 / RFC 8613 §5.2:
//
//  1. ID_PIV_padded = (nonceLen-6-s) zero bytes ∥ [s] ∥ senderID, s =
//     len(senderID), totalling nonceLen-5 bytes.
//  2. PIV_padded = (5-len(piv)) zero bytes ∥ piv, 5 bytes.
//  3. pre_nonce = ID_PIV_padded ∥ PIV_padded, nonceLen bytes.
//  4. nonce = pre_nonce XOR commonIV.
//
// Writes the result into out, returning the number of bytes written.
func BuildNonce(nonceLen int, senderID, piv, commonIV, out []byte) (int, error) {
	if len(out) < nonceLen {
		return nonceLen, ErrBufferTooSmall
	}
	if len(commonIV) != nonceLen {
		return 0, ErrInvalidCommonIV
	}
	s := len(senderID)
	if s > nonceLen-6 {
		return 0, ErrIdTooLong
	}
	if len(piv) > MaxPIVLen {
		return 0, ErrInvalidPIV
	}

	pre := out[:nonceLen]
	for i := range pre {
		pre[i] = 0
	}

	idPivPadded := pre[:nonceLen-5]
	idPivPadded[nonceLen-6-s] = byte(s)
	copy(idPivPadded[nonceLen-6-s+1:], senderID)

	pivPadded := pre[nonceLen-5:]
	copy(pivPadded[5-len(piv):], piv)

	for i := 0; i < nonceLen; i++ {
		pre[i] ^= commonIV[i]
	}
	return nonceLen, nil
}
