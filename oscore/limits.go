package oscore

// Compile-time bounds, per spec §5 "Resources". Every entity the pipeline
// touches fits inside these; exceeding one is a dedicated error, never a
// silent truncation.
const (
	MaxOptionCount       = 24
	MaxPlaintextLen      = 1152
	MaxCiphertextLen     = MaxPlaintextLen + MaxTagLen
	MaxAADLen            = 64
	OscoreOptionValueLen = 1 + MaxPIVLen + 1 + MaxKIDContextLen + MaxSenderIDLen
	MaxPIVLen            = 5
	MaxSenderIDLen        = 7
	MaxKIDContextLen      = 8
	MaxTagLen             = 16

	// MaxSeqNum is the exclusive upper bound on sender_seq_num (2^40).
	MaxSeqNum = uint64(1) << 40

	MaxNonceLen = 16
	MaxKeyLen   = 32
	MaxEchoLen  = 16

	// ECHOOptionNumber is the CoAP option number RFC 9175 assigns to the
	// ECHO option; spec §4.7 uses it for reboot/replay-window recovery.
	ECHOOptionNumber uint16 = 252
)
