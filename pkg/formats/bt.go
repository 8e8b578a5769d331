package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// BT format errors.
var (
	ErrInvalidBTMagic       = errors.New("invalid BT magic: expected 'binterr'")
	ErrUnsupportedBTVersion = errors.New("unsupported BT version")
	ErrTruncatedBTData      = errors.New("truncated BT data")
	ErrInvalidBTDataSize    = errors.New("invalid BT sample size")
)

// btHeaderSize is the fixed header length for every version.
const btHeaderSize = 256

// BTVersion is the minor version of a "binterr1.x" file.
type BTVersion uint8

// Known BT versions.
const (
	BTVersion10 BTVersion = 0
	BTVersion11 BTVersion = 1
	BTVersion12 BTVersion = 2
	BTVersion13 BTVersion = 3
)

// String returns the version as "1.x".
func (v BTVersion) String() string {
	return fmt.Sprintf("1.%d", uint8(v))
}

// Horizontal units for BTVersion13. Older versions store a UTM flag in the
// same field: 0 for geographic, 1 for UTM.
const (
	BTUnitsDegrees  int16 = 0
	BTUnitsMeters   int16 = 1
	BTUnitsFeetIntl int16 = 2
	BTUnitsFeetUS   int16 = 3
)

// BT is a parsed Binary Terrain elevation grid.
type BT struct {
	Version  BTVersion
	Columns  int32
	Rows     int32
	DataSize int16 // bytes per sample: 2 or 4
	Float    bool  // samples are float32 rather than integers

	HorizontalUnits int16
	UTMZone         int16
	Datum           int16

	Left, Right, Bottom, Top float64

	ExternalProjection bool
	VerticalScale      float32 // metres per stored unit, 0 means 1

	// Heights is column-major starting at the south-west corner:
	// Heights[col*Rows+row], with row 0 at the southern edge.
	// VerticalScale is already applied.
	Heights []float32
}

// HeightAt returns the sample at column col and row row, or 0 when out of range.
func (b *BT) HeightAt(col, row int) float32 {
	if col < 0 || row < 0 || col >= int(b.Columns) || row >= int(b.Rows) {
		return 0
	}
	return b.Heights[col*int(b.Rows)+row]
}

// ParseBT parses a BT file from raw bytes.
func ParseBT(data []byte) (*BT, error) {
	if len(data) < btHeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncatedBTData, btHeaderSize, len(data))
	}

	if string(data[0:8]) != "binterr1" || data[8] != '.' {
		return nil, ErrInvalidBTMagic
	}
	minor := data[9]
	if minor < '0' || minor > '3' {
		return nil, fmt.Errorf("%w: 1.%c", ErrUnsupportedBTVersion, minor)
	}

	bt := &BT{Version: BTVersion(minor - '0')}
	r := bytes.NewReader(data[10:btHeaderSize])
	le := binary.LittleEndian

	read := func(field string, v any) error {
		if err := binary.Read(r, le, v); err != nil {
			return fmt.Errorf("%w: reading %s", ErrTruncatedBTData, field)
		}
		return nil
	}

	if err := read("columns", &bt.Columns); err != nil {
		return nil, err
	}
	if err := read("rows", &bt.Rows); err != nil {
		return nil, err
	}

	var floatFlag int16
	if bt.Version == BTVersion10 {
		var size int32
		var ext [4]float32
		if err := read("data size", &size); err != nil {
			return nil, err
		}
		if err := read("utm flag", &bt.HorizontalUnits); err != nil {
			return nil, err
		}
		if err := read("utm zone", &bt.UTMZone); err != nil {
			return nil, err
		}
		if err := read("extents", &ext); err != nil {
			return nil, err
		}
		if err := read("float flag", &floatFlag); err != nil {
			return nil, err
		}
		bt.DataSize = int16(size)
		bt.Left, bt.Right = float64(ext[0]), float64(ext[1])
		bt.Bottom, bt.Top = float64(ext[2]), float64(ext[3])
	} else {
		var ext [4]float64
		fields := []struct {
			name string
			v    any
		}{
			{"data size", &bt.DataSize},
			{"float flag", &floatFlag},
			{"horizontal units", &bt.HorizontalUnits},
			{"utm zone", &bt.UTMZone},
			{"datum", &bt.Datum},
			{"extents", &ext},
		}
		for _, f := range fields {
			if err := read(f.name, f.v); err != nil {
				return nil, err
			}
		}
		bt.Left, bt.Right, bt.Bottom, bt.Top = ext[0], ext[1], ext[2], ext[3]

		if bt.Version >= BTVersion12 {
			var external int16
			if err := read("projection flag", &external); err != nil {
				return nil, err
			}
			bt.ExternalProjection = external != 0
		}
		if bt.Version >= BTVersion13 {
			if err := read("vertical scale", &bt.VerticalScale); err != nil {
				return nil, err
			}
		}
	}
	bt.Float = floatFlag != 0

	if bt.Columns <= 0 || bt.Rows <= 0 || bt.Columns > 1<<16 || bt.Rows > 1<<16 {
		return nil, fmt.Errorf("invalid BT dimensions: %dx%d", bt.Columns, bt.Rows)
	}
	if bt.DataSize != 2 && bt.DataSize != 4 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBTDataSize, bt.DataSize)
	}
	// 2-byte floats do not exist; such files are read as int16.
	if bt.DataSize == 2 {
		bt.Float = false
	}

	count := int(bt.Columns) * int(bt.Rows)
	body := data[btHeaderSize:]
	if len(body) < count*int(bt.DataSize) {
		return nil, fmt.Errorf("%w: need %d samples", ErrTruncatedBTData, count)
	}

	scale := bt.VerticalScale
	if scale == 0 {
		scale = 1
	}

	bt.Heights = make([]float32, count)
	for i := range count {
		switch {
		case bt.DataSize == 2:
			bt.Heights[i] = float32(int16(le.Uint16(body[i*2:]))) * scale
		case bt.Float:
			bits := le.Uint32(body[i*4:])
			bt.Heights[i] = math.Float32frombits(bits) * scale
		default:
			bt.Heights[i] = float32(int32(le.Uint32(body[i*4:]))) * scale
		}
	}

	return bt, nil
}

// ParseBTFile parses a BT file from disk.
func ParseBTFile(path string) (*BT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading BT file: %w", err)
	}
	return ParseBT(data)
}

// Encode serialises the grid as a version 1.3 file with float32 samples.
func (b *BT) Encode() []byte {
	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	buf.WriteString("binterr1.3")
	binary.Write(buf, le, b.Columns)
	binary.Write(buf, le, b.Rows)
	binary.Write(buf, le, int16(4)) // data size
	binary.Write(buf, le, int16(1)) // float flag
	binary.Write(buf, le, b.HorizontalUnits)
	binary.Write(buf, le, b.UTMZone)
	binary.Write(buf, le, b.Datum)
	binary.Write(buf, le, [4]float64{b.Left, b.Right, b.Bottom, b.Top})
	var external int16
	if b.ExternalProjection {
		external = 1
	}
	binary.Write(buf, le, external)
	// Heights are stored already scaled.
	binary.Write(buf, le, float32(1))
	buf.Write(make([]byte, btHeaderSize-buf.Len()))

	binary.Write(buf, le, b.Heights)
	return buf.Bytes()
}

// WriteBTFile writes the grid to disk in version 1.3 format.
func WriteBTFile(path string, b *BT) error {
	if err := os.WriteFile(path, b.Encode(), 0o644); err != nil {
		return fmt.Errorf("writing BT file: %w", err)
	}
	return nil
}
