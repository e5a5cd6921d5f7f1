package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	require := require.New(t)

	result := CheckEndianness()

	// Verify the result against the actual layout of a known value.
	var testValue uint16 = 0x0102
	testBytes := (*[2]byte)(unsafe.Pointer(&testValue))

	switch testBytes[0] {
	case 0x01:
		require.Equal(binary.BigEndian, result)
	case 0x02:
		require.Equal(binary.LittleEndian, result)
	default:
		require.Failf("unexpected byte value", "got: %v", testBytes[0])
	}

	require.NotEqual(IsNativeLittleEndian(), IsNativeBigEndian())
}

func TestEngineByteLayout(t *testing.T) {
	little := GetLittleEndianEngine()
	big := GetBigEndianEngine()

	require.Implements(t, (*EndianEngine)(nil), little)
	require.Implements(t, (*EndianEngine)(nil), big)

	var testValue uint16 = 0x0102
	buf := make([]byte, 2)

	little.PutUint16(buf, testValue)
	require.Equal(t, byte(0x02), buf[0], "little endian puts LSB first")
	require.Equal(t, testValue, little.Uint16(buf))

	big.PutUint16(buf, testValue)
	require.Equal(t, byte(0x01), buf[0], "big endian puts MSB first")
	require.Equal(t, testValue, big.Uint16(buf))
}

func TestEngineAppendRoundTrip(t *testing.T) {
	for _, engine := range []EndianEngine{GetLittleEndianEngine(), GetBigEndianEngine()} {
		var buf []byte
		buf = engine.AppendUint32(buf, 0x01020304)
		buf = engine.AppendUint64(buf, 0x0102030405060708)

		require.Len(t, buf, 12)
		require.Equal(t, uint32(0x01020304), engine.Uint32(buf[:4]))
		require.Equal(t, uint64(0x0102030405060708), engine.Uint64(buf[4:]))
	}
}

func TestNameRoundTrip(t *testing.T) {
	require.Equal(t, "le", Name(GetLittleEndianEngine()))
	require.Equal(t, "be", Name(GetBigEndianEngine()))

	engine, err := EngineFor("le")
	require.NoError(t, err)
	require.Equal(t, GetLittleEndianEngine(), engine)

	engine, err = EngineFor("be")
	require.NoError(t, err)
	require.Equal(t, GetBigEndianEngine(), engine)

	// The empty name is the archive default.
	engine, err = EngineFor("")
	require.NoError(t, err)
	require.Equal(t, GetLittleEndianEngine(), engine)

	_, err = EngineFor("pdp")
	require.Error(t, err)
}
