// Package dtype defines the element data types supported by the array
// engine and conversion of fill values between their JSON metadata form and
// their fixed-size byte representation.
package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType identifies the numerical representation of array elements.
type DataType int

const (
	Bool DataType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Complex64
	Complex128
)

// Parse resolves a data type from its metadata name.
func Parse(name string) (DataType, error) {
	switch name {
	case "bool":
		return Bool, nil
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return UInt8, nil
	case "uint16":
		return UInt16, nil
	case "uint32":
		return UInt32, nil
	case "uint64":
		return UInt64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "complex64":
		return Complex64, nil
	case "complex128":
		return Complex128, nil
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}

// String returns the metadata name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	}
	return "invalid"
}

// Size returns the element size in bytes.
func (dt DataType) Size() uint64 {
	switch dt {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// IsComplex reports whether the type stores a real/imaginary pair.
func (dt DataType) IsComplex() bool {
	return dt == Complex64 || dt == Complex128
}

// FillValue is the byte representation of one element in the engine's
// in-memory layout (little-endian), used for uninitialised array regions.
type FillValue []byte

// Equal reports whether two fill values are byte-identical.
func (fv FillValue) Equal(other FillValue) bool {
	if len(fv) != len(other) {
		return false
	}
	for i := range fv {
		if fv[i] != other[i] {
			return false
		}
	}
	return true
}

// EqualsAll reports whether every element of a packed element buffer equals
// the fill value. An empty buffer is all-fill.
func (fv FillValue) EqualsAll(data []byte) bool {
	n := len(fv)
	if n == 0 || len(data)%n != 0 {
		return false
	}
	for i := 0; i < len(data); i += n {
		for j := 0; j < n; j++ {
			if data[i+j] != fv[j] {
				return false
			}
		}
	}
	return true
}

// FillValueFromJSON converts the fill value of an array metadata document
// into its byte representation for the given data type. Floating-point
// types additionally accept the strings "NaN", "Infinity" and "-Infinity";
// complex types take a two-element [re, im] array.
func FillValueFromJSON(dt DataType, v any) (FillValue, error) {
	switch dt {
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("fill value %v is not a bool", v)
		}
		if b {
			return FillValue{1}, nil
		}
		return FillValue{0}, nil
	case Int8, Int16, Int32, Int64:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("fill value %v is not an integer", v)
		}
		return intFill(dt, int64(f)), nil
	case UInt8, UInt16, UInt32, UInt64:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) || f < 0 {
			return nil, fmt.Errorf("fill value %v is not an unsigned integer", v)
		}
		return uintFill(dt, uint64(f)), nil
	case Float32, Float64:
		f, err := floatFromJSON(v)
		if err != nil {
			return nil, err
		}
		return floatFill(dt, f), nil
	case Complex64, Complex128:
		pair, ok := v.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("fill value %v is not a [re, im] pair", v)
		}
		re, err := floatFromJSON(pair[0])
		if err != nil {
			return nil, err
		}
		im, err := floatFromJSON(pair[1])
		if err != nil {
			return nil, err
		}
		if dt == Complex64 {
			out := make(FillValue, 8)
			binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(float32(re)))
			binary.LittleEndian.PutUint32(out[4:8], math.Float32bits(float32(im)))
			return out, nil
		}
		out := make(FillValue, 16)
		binary.LittleEndian.PutUint64(out[0:8], math.Float64bits(re))
		binary.LittleEndian.PutUint64(out[8:16], math.Float64bits(im))
		return out, nil
	}
	return nil, fmt.Errorf("unsupported data type %v", dt)
}

// FillValueToJSON converts a fill value back to its metadata document form.
func FillValueToJSON(dt DataType, fv FillValue) (any, error) {
	if uint64(len(fv)) != dt.Size() {
		return nil, fmt.Errorf("fill value has %d bytes, want %d for %s", len(fv), dt.Size(), dt)
	}
	switch dt {
	case Bool:
		return fv[0] != 0, nil
	case Int8:
		return float64(int8(fv[0])), nil
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(fv))), nil
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(fv))), nil
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(fv))), nil
	case UInt8:
		return float64(fv[0]), nil
	case UInt16:
		return float64(binary.LittleEndian.Uint16(fv)), nil
	case UInt32:
		return float64(binary.LittleEndian.Uint32(fv)), nil
	case UInt64:
		return float64(binary.LittleEndian.Uint64(fv)), nil
	case Float32:
		return floatToJSON(float64(math.Float32frombits(binary.LittleEndian.Uint32(fv)))), nil
	case Float64:
		return floatToJSON(math.Float64frombits(binary.LittleEndian.Uint64(fv))), nil
	case Complex64:
		re := float64(math.Float32frombits(binary.LittleEndian.Uint32(fv[0:4])))
		im := float64(math.Float32frombits(binary.LittleEndian.Uint32(fv[4:8])))
		return []any{floatToJSON(re), floatToJSON(im)}, nil
	case Complex128:
		re := math.Float64frombits(binary.LittleEndian.Uint64(fv[0:8]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(fv[8:16]))
		return []any{floatToJSON(re), floatToJSON(im)}, nil
	}
	return nil, fmt.Errorf("unsupported data type %v", dt)
}

func floatFromJSON(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("fill value %v is not a float", v)
}

func floatToJSON(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func floatFill(dt DataType, f float64) FillValue {
	if dt == Float32 {
		out := make(FillValue, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		return out
	}
	out := make(FillValue, 8)
	binary.LittleEndian.PutUint64(out, math.Float64bits(f))
	return out
}

func intFill(dt DataType, v int64) FillValue {
	return uintFill(dt, uint64(v))
}

func uintFill(dt DataType, v uint64) FillValue {
	out := make(FillValue, dt.Size())
	switch dt.Size() {
	case 1:
		out[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(out, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(out, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(out, v)
	}
	return out
}
