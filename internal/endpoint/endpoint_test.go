package endpoint

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/huffman"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

var errStop = errors.New("stop")

func TestReadLoopFramesFixedAndVariablePackets(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	c := NewConn(local, protover.V7)

	go func() {
		w := wire.Get()
		wire.PlayServer{Index: 3}.Encode(w)
		wire.ClientVersion{Version: "7.0.18.0"}.Encode(w)
		remote.Write(w.Bytes())
		w.Put()
	}()

	var got []byte
	err := c.ReadLoop(time.Second, func(pkt []byte) error {
		got = append(got, pkt...)
		if len(got) >= 3+12 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	assert.EqualValues(t, byte(wire.OpPlayServer), got[0])
}

func TestSendQueueFullDisconnects(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	c := NewConn(local, protover.V7)
	for i := 0; i < defaultSendQueueSize; i++ {
		require.NoError(t, c.Send([]byte{byte(i)}))
	}
	err := c.Send([]byte{0xFF})
	assert.Error(t, err)

	select {
	case <-c.closeCh:
	default:
		t.Fatal("expected CloseAsync to have fired")
	}
}

func TestWritePumpCompressesWhenEnabled(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	c := NewConn(local, protover.V7)
	c.EnableCompression()
	go c.WritePump()

	payload := []byte{0x72, 0x01}
	require.NoError(t, c.Send(payload))

	raw := make([]byte, 64)
	remote.SetReadDeadline(time.Now().Add(time.Second))
	n, err := remote.Read(raw)
	require.NoError(t, err)

	dec := huffman.NewDecoder()
	out, err := dec.Decompress(nil, raw[:n])
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
