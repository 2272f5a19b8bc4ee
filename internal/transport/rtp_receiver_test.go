package transport

import (
	"net"
	"testing"

	"github.com/pion/rtp"
)

func TestRTPReceiverUDPReadsPacket(t *testing.T) {
	recv, err := ListenRTPUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer recv.Close()

	sender, err := net.Dial("udp", recv.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sender.Close()

	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 7, Timestamp: 9000}, Payload: []byte{9, 8, 7}}
	raw, _ := pkt.Marshal()
	if _, err := sender.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := recv.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got.SequenceNumber != 7 || got.Timestamp != 9000 {
		t.Fatalf("unexpected header: %+v", got.Header)
	}
	if string(got.Payload) != "\x09\x08\x07" {
		t.Fatalf("unexpected payload: %v", got.Payload)
	}
}

func TestRTPReceiverFramedReadsLengthPrefixedPacket(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	recv := NewRTPReceiverFromConn(server)

	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 3}, Payload: []byte{1, 2, 3}}
	raw, _ := pkt.Marshal()
	framed := append([]byte{byte(len(raw) >> 8), byte(len(raw))}, raw...)

	done := make(chan error, 1)
	go func() { _, err := client.Write(framed); done <- err }()

	got, err := recv.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("write: %v", err)
	}
	if got.SequenceNumber != 3 {
		t.Fatalf("unexpected sequence number: %d", got.SequenceNumber)
	}
}
