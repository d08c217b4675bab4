// Package mattest writes small Level 5 MAT-files for tests.
package mattest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type Options struct {
	Compress  bool
	BigEndian bool
}

// Cells encodes variable as an Nx1 cell array whose cells are Kx2 double
// matrices of (start, end) frames.
func Cells(variable string, cells [][][2]float64, opt Options) []byte {
	e := newEncoder(opt)
	body := e.matrixHeader(1, []int32{int32(len(cells)), 1}, variable)
	for _, c := range cells {
		e.element(body, 14, e.doubles("", c))
	}
	return e.file(body.Bytes())
}

// Matrix encodes variable as a plain Kx2 double matrix.
func Matrix(variable string, rows [][2]float64, opt Options) []byte {
	e := newEncoder(opt)
	return e.file(e.doubles(variable, rows))
}

// Write stores a compressed cell array fixture at path and returns path.
func Write(t testing.TB, path, variable string, cells [][][2]float64) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mat fixture dir: %v", err)
	}
	if err := os.WriteFile(path, Cells(variable, cells, Options{Compress: true}), 0o644); err != nil {
		t.Fatalf("write mat fixture: %v", err)
	}
	return path
}

type encoder struct {
	opt   Options
	order binary.ByteOrder
}

func newEncoder(opt Options) encoder {
	var order binary.ByteOrder = binary.LittleEndian
	if opt.BigEndian {
		order = binary.BigEndian
	}
	return encoder{opt: opt, order: order}
}

func (e encoder) file(matrix []byte) []byte {
	var out bytes.Buffer
	text := make([]byte, 116)
	copy(text, "MATLAB 5.0 MAT-file, created by mattest")
	for i := range text {
		if text[i] == 0 {
			text[i] = ' '
		}
	}
	out.Write(text)
	out.Write(make([]byte, 8))
	_ = binary.Write(&out, e.order, uint16(0x0100))
	if e.opt.BigEndian {
		out.WriteString("MI")
	} else {
		out.WriteString("IM")
	}

	if !e.opt.Compress {
		e.element(&out, 14, matrix)
		return out.Bytes()
	}
	var inner bytes.Buffer
	e.element(&inner, 14, matrix)
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write(inner.Bytes())
	_ = zw.Close()
	e.tag(&out, 15, z.Len())
	out.Write(z.Bytes())
	return out.Bytes()
}

func (e encoder) matrixHeader(class byte, dims []int32, name string) *bytes.Buffer {
	var b bytes.Buffer
	flags := make([]byte, 8)
	e.order.PutUint32(flags, uint32(class))
	e.element(&b, 6, flags)

	d := make([]byte, 4*len(dims))
	for i, v := range dims {
		e.order.PutUint32(d[i*4:], uint32(v))
	}
	e.element(&b, 5, d)
	e.element(&b, 1, []byte(name))
	return &b
}

func (e encoder) doubles(name string, rows [][2]float64) []byte {
	b := e.matrixHeader(6, []int32{int32(len(rows)), 2}, name)
	if len(rows) == 0 {
		e.element(b, 9, nil)
		return b.Bytes()
	}
	raw := make([]byte, 8*2*len(rows))
	for i, r := range rows {
		e.order.PutUint64(raw[8*i:], math.Float64bits(r[0]))
		e.order.PutUint64(raw[8*(len(rows)+i):], math.Float64bits(r[1]))
	}
	e.element(b, 9, raw)
	return b.Bytes()
}

// element writes a tagged, 8-byte aligned data element, using the small element
// format for 1..4 byte payloads.
func (e encoder) element(w *bytes.Buffer, typ uint32, payload []byte) {
	if n := len(payload); n > 0 && n <= 4 {
		hdr := make([]byte, 4)
		e.order.PutUint32(hdr, uint32(n)<<16|typ)
		w.Write(hdr)
		w.Write(payload)
		w.Write(make([]byte, 4-n))
		return
	}
	e.tag(w, typ, len(payload))
	w.Write(payload)
	if pad := (8 - len(payload)%8) % 8; pad > 0 {
		w.Write(make([]byte, pad))
	}
}

func (e encoder) tag(w *bytes.Buffer, typ uint32, n int) {
	hdr := make([]byte, 8)
	e.order.PutUint32(hdr[0:4], typ)
	e.order.PutUint32(hdr[4:8], uint32(n))
	w.Write(hdr)
}
