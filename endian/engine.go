// Package endian provides byte order utilities for the columnar payload
// codecs.
//
// It combines the ByteOrder and AppendByteOrder interfaces of encoding/binary
// into a single EndianEngine interface, so an encoder can both append fixed
// width values to a growing buffer and read them back through one value.
// Archives record the byte order of every columnar payload in the node
// metadata using the wire names returned by Name, which makes payloads
// portable between hosts of either endianness.
//
// Little endian is the holdall default. Big endian exists for callers that
// feed payloads to big-endian consumers:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint64(buf, bits)
//
// All functions in this package are safe for concurrent use. The returned
// engines are immutable and stateless.
package endian

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// EndianEngine combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary.
//
// binary.LittleEndian and binary.BigEndian both satisfy it, so an engine can
// be passed anywhere the standard interfaces are expected.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. A little-endian host stores the LSB (0x00) first,
	// a big-endian host the MSB (0x01).
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

func IsNativeBigEndian() bool {
	return CheckEndianness() == binary.BigEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// Name returns the wire name recorded in payload metadata: "le" or "be".
func Name(engine EndianEngine) string {
	if engine == binary.BigEndian {
		return "be"
	}

	return "le"
}

// EngineFor returns the engine for a wire name produced by Name. An empty
// name selects little endian, the archive default.
func EngineFor(name string) (EndianEngine, error) {
	switch name {
	case "", "le":
		return binary.LittleEndian, nil
	case "be":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order: %q", name)
	}
}
