package protocol

import (
	"encoding/binary"
	"errors"

	"overbind/internal/remap"
)

// Packet types
const (
	PacketFrame     uint8 = 0x01
	PacketHeartbeat uint8 = 0x11
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const HeaderSize = 13

// FramePayloadSize is buttons(2) + lt(2) + rt(2) + lx(2) + ly(2) + rx(2) + ry(2)
const FramePayloadSize = 14

var (
	// ErrShortPacket is returned when a packet is truncated
	ErrShortPacket = errors.New("protocol: packet too short")

	// ErrUnknownPacket is returned for an unrecognised packet type
	ErrUnknownPacket = errors.New("protocol: unknown packet type")
)

// Packet is a binary-encoded monitor event.
//
// Wire format per type:
//
//	Frame     (0x01): header + buttons(uint16) + lt(uint16) + rt(uint16)
//	                  + lx(int16) + ly(int16) + rx(int16) + ry(int16)  = 27 bytes
//	Heartbeat (0x11): header only                                      = 13 bytes
type Packet struct {
	Type      uint8
	Seq       uint32
	Timestamp int64 // unix milliseconds
	Frame     remap.GamepadFrame
}

// EncodePacket serializes a Packet to wire format.
func EncodePacket(pkt *Packet) []byte {
	size := HeaderSize
	if pkt.Type == PacketFrame {
		size += FramePayloadSize
	}

	buf := make([]byte, size)
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	if pkt.Type == PacketFrame {
		p := buf[HeaderSize:]
		f := pkt.Frame
		binary.BigEndian.PutUint16(p[0:2], f.Buttons)
		binary.BigEndian.PutUint16(p[2:4], f.LeftTrigger)
		binary.BigEndian.PutUint16(p[4:6], f.RightTrigger)
		binary.BigEndian.PutUint16(p[6:8], uint16(f.ThumbLX))
		binary.BigEndian.PutUint16(p[8:10], uint16(f.ThumbLY))
		binary.BigEndian.PutUint16(p[10:12], uint16(f.ThumbRX))
		binary.BigEndian.PutUint16(p[12:14], uint16(f.ThumbRY))
	}
	return buf
}

// DecodePacket deserializes wire bytes into a Packet.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, ErrShortPacket
	}

	pkt := &Packet{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	switch pkt.Type {
	case PacketFrame:
		p := data[HeaderSize:]
		if len(p) < FramePayloadSize {
			return nil, ErrShortPacket
		}
		pkt.Frame = remap.GamepadFrame{
			Buttons:      binary.BigEndian.Uint16(p[0:2]),
			LeftTrigger:  binary.BigEndian.Uint16(p[2:4]),
			RightTrigger: binary.BigEndian.Uint16(p[4:6]),
			ThumbLX:      int16(binary.BigEndian.Uint16(p[6:8])),
			ThumbLY:      int16(binary.BigEndian.Uint16(p[8:10])),
			ThumbRX:      int16(binary.BigEndian.Uint16(p[10:12])),
			ThumbRY:      int16(binary.BigEndian.Uint16(p[12:14])),
		}
	case PacketHeartbeat:
		// no payload
	default:
		return nil, ErrUnknownPacket
	}
	return pkt, nil
}
