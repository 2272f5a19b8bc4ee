package transport

import (
	"fmt"
	"net"

	"github.com/pion/rtp"
)

// RTPReceiver reads RTP packets off a UDP or TCP (framed) source, the
// read-side counterpart of RTPSender (§4.9 "RTP over UDP or TCP
// (framed)").
type RTPReceiver struct {
	conn   net.PacketConn
	stream net.Conn
	framed bool
	buf    []byte
}

// ListenRTPUDP opens a UDP socket bound to addr for receiving RTP.
func ListenRTPUDP(addr string) (*RTPReceiver, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen rtp udp: %w", err)
	}
	return &RTPReceiver{conn: conn, buf: make([]byte, 1500)}, nil
}

// NewRTPReceiverFromConn wraps an already-accepted TCP (framed) connection.
func NewRTPReceiverFromConn(conn net.Conn) *RTPReceiver {
	return &RTPReceiver{stream: conn, framed: true, buf: make([]byte, 1500)}
}

// Recv blocks for the next RTP packet.
func (r *RTPReceiver) Recv() (*rtp.Packet, error) {
	var raw []byte
	if r.framed {
		var lenPrefix [2]byte
		if _, err := readFull(r.stream, lenPrefix[:]); err != nil {
			return nil, err
		}
		n := int(lenPrefix[0])<<8 | int(lenPrefix[1])
		if cap(r.buf) < n {
			r.buf = make([]byte, n)
		}
		raw = r.buf[:n]
		if _, err := readFull(r.stream, raw); err != nil {
			return nil, err
		}
	} else {
		n, _, err := r.conn.ReadFrom(r.buf)
		if err != nil {
			return nil, err
		}
		raw = r.buf[:n]
	}
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("transport: unmarshal rtp packet: %w", err)
	}
	return pkt, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close closes the underlying socket.
func (r *RTPReceiver) Close() error {
	if r.framed {
		return r.stream.Close()
	}
	return r.conn.Close()
}
