package protocol

import (
	"errors"
	"testing"

	"overbind/internal/remap"
)

func TestFramePacketLayout(t *testing.T) {
	pkt := &Packet{
		Type:      PacketFrame,
		Seq:       7,
		Timestamp: 1700000000000,
		Frame: remap.GamepadFrame{
			Buttons:     remap.ButtonA | remap.ButtonDpadUp,
			LeftTrigger: 1023,
			ThumbLX:     -32768,
			ThumbRY:     32767,
		},
	}

	buf := EncodePacket(pkt)
	if len(buf) != HeaderSize+FramePayloadSize {
		t.Fatalf("Expected %d bytes, got %d", HeaderSize+FramePayloadSize, len(buf))
	}
	if buf[13] != 0x10 || buf[14] != 0x01 {
		t.Errorf("Expected buttons 0x1001 big endian, got %X %X", buf[13], buf[14])
	}
	if buf[19] != 0x80 || buf[20] != 0x00 {
		t.Errorf("Expected lx 0x8000, got %X %X", buf[19], buf[20])
	}

	got, err := DecodePacket(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Seq != 7 || got.Timestamp != 1700000000000 {
		t.Errorf("Expected header 7/1700000000000, got %d/%d", got.Seq, got.Timestamp)
	}
	if got.Frame != pkt.Frame {
		t.Errorf("Expected frame %+v, got %+v", pkt.Frame, got.Frame)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodePacket([]byte{PacketFrame}); !errors.Is(err, ErrShortPacket) {
		t.Errorf("Expected ErrShortPacket, got %v", err)
	}

	short := EncodePacket(&Packet{Type: PacketFrame})[:HeaderSize+4]
	if _, err := DecodePacket(short); !errors.Is(err, ErrShortPacket) {
		t.Errorf("Expected ErrShortPacket for truncated frame, got %v", err)
	}

	unknown := EncodePacket(&Packet{Type: 0x7F})
	if _, err := DecodePacket(unknown); !errors.Is(err, ErrUnknownPacket) {
		t.Errorf("Expected ErrUnknownPacket, got %v", err)
	}

	hb, err := DecodePacket(EncodePacket(&Packet{Type: PacketHeartbeat, Seq: 1}))
	if err != nil || hb.Seq != 1 {
		t.Errorf("Expected heartbeat seq 1, got %+v, %v", hb, err)
	}
}
