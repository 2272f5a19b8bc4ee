package transport

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/pion/rtp"
)

func TestRTPSenderUnframedWritesRawPacket(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sender := NewRTPSender(client, false)
	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 1}, Payload: []byte{1, 2, 3}}
	raw, _ := pkt.Marshal()

	done := make(chan error, 1)
	go func() { done <- sender.Send(pkt) }()

	buf := make([]byte, len(raw))
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("send error: %v", err)
	}
}

func TestRTPSenderFramedWritesLengthPrefix(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sender := NewRTPSender(client, true)
	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 1}, Payload: []byte{1, 2, 3}}
	raw, _ := pkt.Marshal()

	done := make(chan error, 1)
	go func() { done <- sender.Send(pkt) }()

	buf := make([]byte, len(raw)+2)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("send error: %v", err)
	}
	gotLen := binary.BigEndian.Uint16(buf[:2])
	if int(gotLen) != len(raw) {
		t.Fatalf("expected length prefix %d, got %d", len(raw), gotLen)
	}
}
