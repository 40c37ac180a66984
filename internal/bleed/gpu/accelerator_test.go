package gpu

import (
	"bytes"
	"encoding/binary"
	"image"
	"testing"
)

func TestStepSchedule_HalvesToOne(t *testing.T) {
	tests := []struct {
		maxDim int
		want   []uint32
	}{
		{1, nil},
		{2, []uint32{1}},
		{3, []uint32{2, 1}},
		{16, []uint32{8, 4, 2, 1}},
		{17, []uint32{16, 8, 4, 2, 1}},
		{1074, []uint32{1024, 512, 256, 128, 64, 32, 16, 8, 4, 2, 1}},
	}

	for _, tt := range tests {
		got := stepSchedule(tt.maxDim)
		if len(got) != len(tt.want) {
			t.Errorf("stepSchedule(%d) = %v, want %v", tt.maxDim, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("stepSchedule(%d)[%d] = %d, want %d", tt.maxDim, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFloodParams_ToBytesLayout(t *testing.T) {
	p := floodParams{
		width:         779,
		height:        1074,
		step:          512,
		seedThreshold: 250,
		fillThreshold: 250,
		darken:        1,
		darkThreshold: 30,
	}

	buf := p.toBytes()
	if len(buf) != paramsSize {
		t.Fatalf("params size = %d, want %d", len(buf), paramsSize)
	}

	want := []uint32{779, 1074, 512, 250, 250, 1, 30, 0}
	for i, v := range want {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != v {
			t.Errorf("field %d = %d, want %d", i, got, v)
		}
	}
}

func TestWorkgroups_CoversAllElements(t *testing.T) {
	tests := []struct {
		n    int
		want uint32
	}{
		{0, 0},
		{1, 1},
		{256, 1},
		{257, 2},
		{779 * 1074, 3269},
	}

	for _, tt := range tests {
		if got := workgroups(tt.n); got != tt.want {
			t.Errorf("workgroups(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestPackPixels_TightImageSharesBacking(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Pix[0] = 42

	out := packPixels(img)
	if &out[0] != &img.Pix[0] {
		t.Error("tightly packed image should not be copied")
	}
}

func TestPackUnpack_RoundTripsSubImage(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range base.Pix {
		base.Pix[i] = byte(i)
	}
	sub := base.SubImage(image.Rect(2, 2, 6, 7)).(*image.NRGBA)

	packed := packPixels(sub)
	if len(packed) != 4*5*4 {
		t.Fatalf("packed %d bytes, want %d", len(packed), 4*5*4)
	}

	// First packed row must equal the sub-image's first row.
	off := sub.PixOffset(2, 2)
	if !bytes.Equal(packed[:16], sub.Pix[off:off+16]) {
		t.Error("first packed row does not match source")
	}

	// Writing modified data back must land on the same pixels.
	modified := make([]byte, len(packed))
	for i := range modified {
		modified[i] = 0xAB
	}
	unpackPixels(sub, modified)
	if got := sub.NRGBAAt(2, 2); got.R != 0xAB || got.A != 0xAB {
		t.Errorf("unpack did not reach pixel (2,2): %v", got)
	}
	if got := base.NRGBAAt(0, 0); got.R != 0 {
		t.Errorf("unpack leaked outside sub-image: %v", got)
	}
	if got := base.NRGBAAt(7, 7); got.R == 0xAB {
		t.Error("unpack leaked past sub-image bounds")
	}
}
