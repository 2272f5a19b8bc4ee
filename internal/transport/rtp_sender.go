package transport

import (
	"fmt"
	"net"

	"github.com/pion/rtp"
)

// RTPSender writes payloaded RTP packets to a UDP or TCP (framed)
// destination (§4.9 "RTP over UDP or TCP (framed)").
type RTPSender struct {
	conn   net.Conn
	framed bool // true for TCP: each packet is length-prefixed (RFC 4571)
	buf    []byte
}

// NewRTPSender wraps conn. framed must be true for TCP transport (RFC 4571
// 2-byte length prefix) and false for UDP, where one packet is one
// datagram.
func NewRTPSender(conn net.Conn, framed bool) *RTPSender {
	return &RTPSender{conn: conn, framed: framed}
}

// Send marshals and writes one RTP packet.
func (s *RTPSender) Send(pkt *rtp.Packet) error {
	raw, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("transport: marshal rtp packet: %w", err)
	}
	if !s.framed {
		_, err = s.conn.Write(raw)
		return err
	}
	if cap(s.buf) < len(raw)+2 {
		s.buf = make([]byte, len(raw)+2)
	}
	s.buf = s.buf[:len(raw)+2]
	s.buf[0] = byte(len(raw) >> 8)
	s.buf[1] = byte(len(raw))
	copy(s.buf[2:], raw)
	_, err = s.conn.Write(s.buf)
	return err
}

// Close closes the underlying connection.
func (s *RTPSender) Close() error {
	return s.conn.Close()
}
