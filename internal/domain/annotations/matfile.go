package annotations

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MAT-file Level 5 data types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// MAT-file array classes.
const (
	mxCELL   = 1
	mxDOUBLE = 6
	mxUINT64 = 15
)

const headerLen = 128

type mxArray struct {
	class byte
	dims  []int
	name  string
	real  []float64
	cells []*mxArray
}

func (a *mxArray) numeric() bool {
	return a.class >= mxDOUBLE && a.class <= mxUINT64
}

func (a *mxArray) count() int {
	if len(a.dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.dims {
		n *= d
	}
	return n
}

type matDecoder struct {
	order binary.ByteOrder
}

// decodeMAT returns the top-level variables of a Level 5 MAT-file keyed by name.
func decodeMAT(data []byte) (map[string]*mxArray, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrMalformed, len(data))
	}
	var d matDecoder
	switch string(data[126:128]) {
	case "IM":
		d.order = binary.LittleEndian
	case "MI":
		d.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: not a level 5 MAT-file", ErrMalformed)
	}

	vars := make(map[string]*mxArray)
	rest := data[headerLen:]
	for len(rest) > 0 {
		typ, payload, next, err := d.element(rest)
		if err != nil {
			return nil, err
		}
		rest = next

		if typ == miCOMPRESSED {
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("%w: compressed element: %v", ErrMalformed, err)
			}
			raw, err := io.ReadAll(zr)
			_ = zr.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: compressed element: %v", ErrMalformed, err)
			}
			typ, payload, _, err = d.element(raw)
			if err != nil {
				return nil, err
			}
		}
		if typ != miMATRIX {
			continue
		}
		arr, err := d.matrix(payload)
		if err != nil {
			return nil, err
		}
		vars[arr.name] = arr
	}
	return vars, nil
}

// element splits one data element off b, honoring the small element format and
// 8-byte alignment of everything except compressed elements.
func (d matDecoder) element(b []byte) (typ uint32, payload, rest []byte, err error) {
	if len(b) < 8 {
		return 0, nil, nil, fmt.Errorf("%w: truncated element tag", ErrMalformed)
	}
	first := d.order.Uint32(b[0:4])
	if n := first >> 16; n != 0 {
		if n > 4 {
			return 0, nil, nil, fmt.Errorf("%w: small element of %d bytes", ErrMalformed, n)
		}
		return first & 0xffff, b[4 : 4+n], b[8:], nil
	}

	n := int(d.order.Uint32(b[4:8]))
	if n < 0 || 8+n > len(b) {
		return 0, nil, nil, fmt.Errorf("%w: element of %d bytes overruns data", ErrMalformed, n)
	}
	adv := 8 + n
	if first != miCOMPRESSED {
		adv = 8 + align8(n)
		if adv > len(b) {
			adv = len(b)
		}
	}
	return first, b[8 : 8+n], b[adv:], nil
}

func (d matDecoder) matrix(p []byte) (*mxArray, error) {
	if len(p) == 0 {
		return &mxArray{class: mxDOUBLE, dims: []int{0, 0}}, nil
	}

	typ, flags, p, err := d.element(p)
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, fmt.Errorf("%w: bad array flags", ErrMalformed)
	}
	arr := &mxArray{class: byte(d.order.Uint32(flags[0:4]) & 0xff)}

	typ, dims, p, err := d.element(p)
	if err != nil {
		return nil, err
	}
	if typ != miINT32 || len(dims) < 8 || len(dims)%4 != 0 {
		return nil, fmt.Errorf("%w: bad dimensions", ErrMalformed)
	}
	for i := 0; i < len(dims); i += 4 {
		dim := int(int32(d.order.Uint32(dims[i : i+4])))
		if dim < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrMalformed, dim)
		}
		arr.dims = append(arr.dims, dim)
	}

	typ, name, p, err := d.element(p)
	if err != nil {
		return nil, err
	}
	if typ != miINT8 {
		return nil, fmt.Errorf("%w: bad array name", ErrMalformed)
	}
	arr.name = string(name)

	switch {
	case arr.class == mxCELL:
		for i := 0; i < arr.count(); i++ {
			var cell []byte
			typ, cell, p, err = d.element(p)
			if err != nil {
				return nil, err
			}
			if typ != miMATRIX {
				return nil, fmt.Errorf("%w: cell %d is not a matrix", ErrMalformed, i)
			}
			c, err := d.matrix(cell)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %w", i, err)
			}
			arr.cells = append(arr.cells, c)
		}
	case arr.numeric():
		if arr.count() == 0 {
			return arr, nil
		}
		typ, raw, _, err := d.element(p)
		if err != nil {
			return nil, err
		}
		vals, err := d.numbers(typ, raw)
		if err != nil {
			return nil, err
		}
		if len(vals) != arr.count() {
			return nil, fmt.Errorf("%w: %d values for %v array", ErrMalformed, len(vals), arr.dims)
		}
		arr.real = vals
	}
	return arr, nil
}

func (d matDecoder) numbers(typ uint32, raw []byte) ([]float64, error) {
	size := map[uint32]int{
		miINT8: 1, miUINT8: 1,
		miINT16: 2, miUINT16: 2,
		miINT32: 4, miUINT32: 4, miSINGLE: 4,
		miDOUBLE: 8, miINT64: 8, miUINT64: 8,
	}[typ]
	if size == 0 {
		return nil, fmt.Errorf("%w: unsupported numeric type %d", ErrMalformed, typ)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformed, len(raw), size)
	}

	out := make([]float64, 0, len(raw)/size)
	for i := 0; i < len(raw); i += size {
		b := raw[i : i+size]
		var v float64
		switch typ {
		case miINT8:
			v = float64(int8(b[0]))
		case miUINT8:
			v = float64(b[0])
		case miINT16:
			v = float64(int16(d.order.Uint16(b)))
		case miUINT16:
			v = float64(d.order.Uint16(b))
		case miINT32:
			v = float64(int32(d.order.Uint32(b)))
		case miUINT32:
			v = float64(d.order.Uint32(b))
		case miSINGLE:
			v = float64(math.Float32frombits(d.order.Uint32(b)))
		case miDOUBLE:
			v = math.Float64frombits(d.order.Uint64(b))
		case miINT64:
			v = float64(int64(d.order.Uint64(b)))
		case miUINT64:
			v = float64(d.order.Uint64(b))
		}
		out = append(out, v)
	}
	return out, nil
}

func align8(n int) int {
	return (n + 7) &^ 7
}
