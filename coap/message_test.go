package coap_test

import (
	"testing"

	"github.com/GiterLab/go-oscore/coap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageMarshalUnmarshalRoundTrip(t *testing.T) {
	var m coap.Message
	m.Ver = 1
	m.Type = coap.Confirmable
	m.Code = coap.GET
	m.MessageID = 0x1234
	require.NoError(t, m.SetToken([]byte{0xaa, 0xbb}))
	require.NoError(t, m.AddOption(coap.URIPath, []byte("temperature")))
	require.NoError(t, m.AddOption(coap.ContentFormat, []byte{0}))
	m.Payload = []byte{0x01, 0x02, 0x03}

	buf := make([]byte, 128)
	n, err := m.Marshal(buf)
	require.NoError(t, err)

	got, err := coap.ParseMessage(buf[:n])
	require.NoError(t, err)

	assert.Equal(t, m.Ver, got.Ver)
	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, m.Code, got.Code)
	assert.Equal(t, m.MessageID, got.MessageID)
	assert.Equal(t, m.Token(), got.Token())
	assert.Equal(t, m.Payload, got.Payload)
	require.Len(t, got.Options(), 2)
	assert.Equal(t, coap.URIPath, got.Options()[0].Number)
	assert.Equal(t, []byte("temperature"), got.Options()[0].Value)
	assert.Equal(t, coap.ContentFormat, got.Options()[1].Number)
}

func TestMessageMarshalBufferTooSmall(t *testing.T) {
	var m coap.Message
	m.Code = coap.GET
	require.NoError(t, m.SetToken([]byte{1, 2, 3, 4}))

	buf := make([]byte, 2)
	_, err := m.Marshal(buf)
	assert.ErrorIs(t, err, coap.ErrBufferTooSmall)
}

func TestParseMessageRejectsBadVersion(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0x00}
	_, err := coap.ParseMessage(data)
	assert.ErrorIs(t, err, coap.ErrInvalidPacket)
}

func TestParseMessageRejectsTruncatedHeader(t *testing.T) {
	_, err := coap.ParseMessage([]byte{0x40, 0x01})
	assert.ErrorIs(t, err, coap.ErrInvalidPacket)
}

func TestParseMessageRejectsStandaloneMarkerByte(t *testing.T) {
	// version 1, type CON, TKL 0, code GET, MID 0, then a bare 0xFF with
	// no payload bytes following it.
	data := []byte{0x40, 0x01, 0x00, 0x00, 0xff}
	_, err := coap.ParseMessage(data)
	assert.ErrorIs(t, err, coap.ErrInvalidPacket)
}

func TestParseMessageEmptyACK(t *testing.T) {
	// version 1, type ACK (2), TKL 0, code 0.00, MID 0x1234.
	data := []byte{0x60, 0x00, 0x12, 0x34}
	m, err := coap.ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, coap.Acknowledgement, m.Type)
	assert.True(t, m.Code.IsEmpty())
	assert.Empty(t, m.Options())
	assert.Empty(t, m.Payload)
}

func TestOptionHeaderExtendedLength(t *testing.T) {
	// A long option value forces the length nibble into its 2-byte
	// extension range (length - 269 >= 0), exercising extWordCode.
	var m coap.Message
	m.Code = coap.GET
	longVal := make([]byte, 300)
	require.NoError(t, m.AddOption(coap.URIPath, longVal))

	buf := make([]byte, 512)
	n, err := m.Marshal(buf)
	require.NoError(t, err)

	got, err := coap.ParseMessage(buf[:n])
	require.NoError(t, err)
	require.Len(t, got.Options(), 1)
	assert.Equal(t, longVal, got.Options()[0].Value)
}

func TestOptionHeaderExtendedDelta(t *testing.T) {
	// A delta of 300 (option number 300, prev 0) forces the delta nibble
	// into its 2-byte extension range as well.
	var m coap.Message
	m.Code = coap.GET
	require.NoError(t, m.AddOption(300, []byte{0x07}))

	buf := make([]byte, 64)
	n, err := m.Marshal(buf)
	require.NoError(t, err)

	got, err := coap.ParseMessage(buf[:n])
	require.NoError(t, err)
	require.Len(t, got.Options(), 1)
	assert.Equal(t, uint16(300), got.Options()[0].Number)
	assert.Equal(t, []byte{0x07}, got.Options()[0].Value)
}
