package listener

import (
	"net"
	"time"
)

// sendUDPKnock fires a single best-effort UDP datagram carrying the
// verbatim AccountLogin packet at addr before the TCP login connection
// opens (spec §6 "UDP knock"). Failure is deliberately non-fatal: the
// caller only logs it.
func sendUDPKnock(addr string, payload []byte) error {
	conn, err := net.DialTimeout("udp", addr, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write(payload)
	return err
}
