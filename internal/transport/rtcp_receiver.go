package transport

import (
	"net"

	"github.com/pion/rtcp"
)

// RTCPReceiver reads RTCP compound packets off a UDP socket, the
// receive-side counterpart RTPReceiver has for media packets. Used for the
// sender-report clock-sync path (§4.1) in addition to the existing
// PLI/FIR keyframe-request path (HandleRTCP).
type RTCPReceiver struct {
	conn net.PacketConn
	buf  []byte
}

// ListenRTCPUDP opens a UDP socket at addr for incoming RTCP.
func ListenRTCPUDP(addr string) (*RTCPReceiver, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	return &RTCPReceiver{conn: conn, buf: make([]byte, 2048)}, nil
}

// Recv blocks for the next RTCP compound packet and unmarshals it.
func (r *RTCPReceiver) Recv() ([]rtcp.Packet, error) {
	n, _, err := r.conn.ReadFrom(r.buf)
	if err != nil {
		return nil, err
	}
	return rtcp.Unmarshal(r.buf[:n])
}

// Close releases the underlying socket.
func (r *RTCPReceiver) Close() error { return r.conn.Close() }
