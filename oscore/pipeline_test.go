package oscore_test

import (
	"testing"

	"github.com/GiterLab/go-oscore/coap"
	"github.com/GiterLab/go-oscore/oscore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*oscore.Pipeline, *oscore.SecurityContext) {
	t.Helper()
	ctx, err := oscore.NewSecurityContext(
		oscore.AESCCM16_64_128,
		10,
		[]byte{0x00},
		make([]byte, 16),
		[]byte{0x46, 0x3a, 0xa4, 0x15, 0x17, 0xa4, 0x66, 0x9c, 0x11, 0x4d, 0x2a, 0x96, 0x85},
		nil,
	)
	require.NoError(t, err)
	return oscore.NewPipeline(ctx), ctx
}

func marshal(t *testing.T, m *coap.Message) []byte {
	t.Helper()
	buf := make([]byte, 256)
	n, err := m.Marshal(buf)
	require.NoError(t, err)
	return buf[:n]
}

func findOption(t *testing.T, m coap.Message, number uint16) (coap.Option, bool) {
	t.Helper()
	for _, o := range m.Options() {
		if o.Number == number {
			return o, true
		}
	}
	return coap.Option{}, false
}

// Scenario 1: request, empty KID context, minimal PIV.
func TestProtectScenario1Request(t *testing.T) {
	p, ctx := newTestPipeline(t)
	ctx.SenderSeqNum = 20

	var in coap.Message
	in.Code = coap.GET
	require.NoError(t, in.SetToken([]byte{0x01}))
	require.NoError(t, in.AddOption(coap.URIPath, []byte("temperature")))
	in.Payload = []byte{0x01, 0x02, 0x03}

	out := make([]byte, 256)
	n, err := p.Protect(marshal(t, &in), out)
	require.NoError(t, err)

	protected, err := coap.ParseMessage(out[:n])
	require.NoError(t, err)

	assert.Equal(t, coap.POST, protected.Code)

	opt, ok := findOption(t, protected, oscore.OSCOREOptionNumber)
	require.True(t, ok)
	assert.Equal(t, []byte{0x09, 0x14, 0x00}, opt.Value)

	assert.Equal(t, uint64(21), ctx.SenderSeqNum)
}

// Scenario 2: notification (response carrying Observe).
func TestProtectScenario2Notification(t *testing.T) {
	p, ctx := newTestPipeline(t)
	ctx.Reboot = false
	ctx.RememberRequest([]byte{0x01}, []byte{0x00})
	ctx.CacheNonce(make([]byte, 13))

	var in coap.Message
	in.Code = coap.Content
	require.NoError(t, in.SetToken([]byte{0x01}))
	require.NoError(t, in.AddOption(coap.Observe, []byte{0x07}))
	in.Payload = []byte{0x2a}

	out := make([]byte, 256)
	n, err := p.Protect(marshal(t, &in), out)
	require.NoError(t, err)

	protected, err := coap.ParseMessage(out[:n])
	require.NoError(t, err)

	assert.Equal(t, coap.Content, protected.Code)

	obs, ok := findOption(t, protected, coap.Observe)
	require.True(t, ok)
	assert.Equal(t, []byte{0x07}, obs.Value, "outer Observe keeps its original value")

	opt, ok := findOption(t, protected, oscore.OSCOREOptionNumber)
	require.True(t, ok)
	assert.NotEmpty(t, opt.Value, "a notification always emits a full OSCORE option")
}

// Scenario 3: plain response reuses cached request_piv/request_kid/nonce
// and emits an empty OSCORE option.
func TestProtectScenario3PlainResponse(t *testing.T) {
	p, ctx := newTestPipeline(t)
	ctx.Reboot = false
	ctx.RememberRequest([]byte{0x01}, []byte{0x00})
	ctx.CacheNonce(make([]byte, 13))

	var in coap.Message
	in.Code = coap.Content
	require.NoError(t, in.SetToken([]byte{0x02}))
	in.Payload = []byte{0x99}

	out := make([]byte, 256)
	n, err := p.Protect(marshal(t, &in), out)
	require.NoError(t, err)

	protected, err := coap.ParseMessage(out[:n])
	require.NoError(t, err)

	assert.Equal(t, coap.Changed, protected.Code)

	opt, ok := findOption(t, protected, oscore.OSCOREOptionNumber)
	require.True(t, ok)
	assert.Empty(t, opt.Value)
}

// Scenario 4 / P3: empty ACK bypasses the pipeline entirely.
func TestProtectScenario4EmptyACKBypass(t *testing.T) {
	p, ctx := newTestPipeline(t)
	before := ctx.SenderSeqNum

	input := []byte{0x60, 0x00, 0x12, 0x34}
	out := make([]byte, 16)
	n, err := p.Protect(input, out)
	require.NoError(t, err)

	assert.Equal(t, input, out[:n])
	assert.Equal(t, before, ctx.SenderSeqNum)
}

// P5: outer option numbers stay non-decreasing and OSCORE lands in sorted
// position relative to the surrounding outer (Class-U) options.
func TestProtectOptionOrdering(t *testing.T) {
	p, _ := newTestPipeline(t)

	var in coap.Message
	in.Code = coap.GET
	require.NoError(t, in.AddOption(coap.URIHost, []byte("example.com")))
	require.NoError(t, in.AddOption(coap.URIPath, []byte("temperature")))

	out := make([]byte, 256)
	n, err := p.Protect(marshal(t, &in), out)
	require.NoError(t, err)

	protected, err := coap.ParseMessage(out[:n])
	require.NoError(t, err)

	opts := protected.Options()
	require.Len(t, opts, 2) // Uri-Host (outer) + OSCORE; Uri-Path is encrypted away.
	for i := 1; i < len(opts); i++ {
		assert.LessOrEqual(t, opts[i-1].Number, opts[i].Number)
	}

	_, hasOscore := findOption(t, protected, oscore.OSCOREOptionNumber)
	assert.True(t, hasOscore)
}

// P2: round-trip through Unprotect (the decrypt collaborator) recovers the
// original message's code, token, MID, type, ver, payload and option set.
func TestProtectUnprotectRoundTrip(t *testing.T) {
	p, ctx := newTestPipeline(t)
	ctx.SenderSeqNum = 5

	var in coap.Message
	in.Ver = 1
	in.Type = coap.Confirmable
	in.Code = coap.GET
	in.MessageID = 0xbeef
	require.NoError(t, in.SetToken([]byte{0xca, 0xfe}))
	require.NoError(t, in.AddOption(coap.URIPath, []byte("temperature")))
	in.Payload = []byte{0x07, 0x08}

	protectedBuf := make([]byte, 256)
	n, err := p.Protect(marshal(t, &in), protectedBuf)
	require.NoError(t, err)

	recoveredBuf := make([]byte, 256)
	rn, err := p.Unprotect(protectedBuf[:n], recoveredBuf)
	require.NoError(t, err)

	recovered, err := coap.ParseMessage(recoveredBuf[:rn])
	require.NoError(t, err)

	assert.Equal(t, in.Ver, recovered.Ver)
	assert.Equal(t, in.Type, recovered.Type)
	assert.Equal(t, in.Code, recovered.Code)
	assert.Equal(t, in.MessageID, recovered.MessageID)
	assert.Equal(t, in.Token(), recovered.Token())
	assert.Equal(t, in.Payload, recovered.Payload)

	require.Len(t, recovered.Options(), 1)
	assert.Equal(t, coap.URIPath, recovered.Options()[0].Number)
	assert.Equal(t, []byte("temperature"), recovered.Options()[0].Value)

	assert.Equal(t, uint64(6), ctx.SenderSeqNum)
}

func TestProtectRejectsUnknownOption(t *testing.T) {
	p, _ := newTestPipeline(t)

	var in coap.Message
	in.Code = coap.GET
	require.NoError(t, in.AddOption(9999, []byte{1}))

	_, err := p.Protect(marshal(t, &in), make([]byte, 256))
	assert.ErrorIs(t, err, coap.ErrUnknownOption)
}
