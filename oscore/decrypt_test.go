package oscore_test

import (
	"testing"

	"github.com/GiterLab/go-oscore/coap"
	"github.com/GiterLab/go-oscore/oscore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnprotectRejectsMessageWithoutOSCOREOption(t *testing.T) {
	p, _ := newTestPipeline(t)

	var in coap.Message
	in.Code = coap.GET
	require.NoError(t, in.SetToken([]byte{0x01}))
	require.NoError(t, in.AddOption(coap.URIPath, []byte("temperature")))

	_, err := p.Unprotect(marshal(t, &in), make([]byte, 256))
	assert.ErrorIs(t, err, oscore.ErrNoOSCOREOption)
}
