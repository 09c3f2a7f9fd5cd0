package upstream

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

func TestNewClientSendsWideSeedFor614Plus(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	done := make(chan struct{})
	var c *Client
	var err error
	go func() {
		c, err = NewClient(local, protover.V7, 0xAABBCCDD)
		close(done)
	}()

	raw := make([]byte, 64)
	remote.SetReadDeadline(time.Now().Add(time.Second))
	n, readErr := remote.Read(raw)
	require.NoError(t, readErr)
	<-done
	require.NoError(t, err)

	assert.EqualValues(t, wire.OpSeed, raw[0])
	r := wire.NewReader(raw[1:n])
	seed, decodeErr := wire.DecodeSeed(r)
	require.NoError(t, decodeErr)
	assert.EqualValues(t, 0xAABBCCDD, seed.Seed)

	c.Stop()
}

func TestNewClientSendsRawSeedForOlderClients(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	done := make(chan struct{})
	var c *Client
	var err error
	go func() {
		c, err = NewClient(local, protover.V5, 0x01020304)
		close(done)
	}()

	raw := make([]byte, 8)
	remote.SetReadDeadline(time.Now().Add(time.Second))
	n, readErr := remote.Read(raw)
	require.NoError(t, readErr)
	<-done
	require.NoError(t, err)

	require.EqualValues(t, 4, n)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, raw[:4])

	c.Stop()
}
