package frame

import (
	"bytes"
	"errors"
	"testing"
)

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestConvertFastPath(t *testing.T) {
	const w, h = 64, 36
	f := &VideoFrame{Width: w, Height: h, Stride: w * BytesPerPixel, Data: patterned(w * BytesPerPixel * h)}
	var s Surface

	if err := Convert(f, &s); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !bytes.Equal(s.Pix, f.Data) {
		t.Error("fast path did not reproduce the frame byte-for-byte")
	}
}

func TestConvertSlowPathDropsPadding(t *testing.T) {
	const w, h = 16, 8
	row := w * BytesPerPixel
	srcStride := 2 * row
	f := &VideoFrame{Width: w, Height: h, Stride: srcStride, Data: make([]byte, srcStride*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < srcStride; x++ {
			if x < row {
				f.Data[y*srcStride+x] = byte(y + 1)
			} else {
				f.Data[y*srcStride+x] = 0xEE
			}
		}
	}

	var s Surface
	if err := Convert(f, &s); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if s.Stride != row {
		t.Fatalf("surface stride = %d, want %d", s.Stride, row)
	}
	if len(s.Pix) != row*h {
		t.Fatalf("surface size = %d, want %d", len(s.Pix), row*h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < row; x++ {
			if got := s.Pix[y*row+x]; got != byte(y+1) {
				t.Fatalf("pixel byte (%d,%d) = %#x, want %#x", x, y, got, y+1)
			}
		}
	}
}

func TestConvertTightLastRow(t *testing.T) {
	const w, h = 4, 3
	row := w * BytesPerPixel
	stride := row + 4
	// last row carries no padding
	data := patterned(stride*(h-1) + row)
	f := &VideoFrame{Width: w, Height: h, Stride: stride, Data: data}

	var s Surface
	if err := Convert(f, &s); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !bytes.Equal(s.Pix[2*row:], data[2*stride:2*stride+row]) {
		t.Error("last row copied incorrectly")
	}
}

func TestConvertResizesLazily(t *testing.T) {
	var s Surface
	small := &VideoFrame{Width: 4, Height: 2, Stride: 8, Data: patterned(16)}
	large := &VideoFrame{Width: 8, Height: 4, Stride: 16, Data: patterned(64)}

	if err := Convert(small, &s); err != nil {
		t.Fatal(err)
	}
	first := &s.Pix[0]

	if err := Convert(small, &s); err != nil {
		t.Fatal(err)
	}
	if &s.Pix[0] != first {
		t.Error("surface recreated for an unchanged resolution")
	}

	if err := Convert(large, &s); err != nil {
		t.Fatal(err)
	}
	if s.Width != 8 || s.Height != 4 {
		t.Errorf("surface = %dx%d, want 8x4", s.Width, s.Height)
	}
}

func TestConvertRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame *VideoFrame
		is    error
	}{
		{"nil frame", nil, ErrNoData},
		{"no data", &VideoFrame{Width: 2, Height: 2, Stride: 4}, ErrNoData},
		{"short buffer", &VideoFrame{Width: 2, Height: 2, Stride: 4, Data: make([]byte, 6)}, ErrShortBuffer},
		{"small stride", &VideoFrame{Width: 4, Height: 1, Stride: 4, Data: make([]byte, 8)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Surface
			err := Convert(tt.frame, &s)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
			if !s.Empty() {
				t.Error("surface touched by a rejected frame")
			}
		})
	}
}

func TestSurfaceYCbCr(t *testing.T) {
	f := &VideoFrame{Width: 2, Height: 1, Stride: 4, Data: []byte{10, 20, 30, 40}}
	var s Surface
	if err := Convert(f, &s); err != nil {
		t.Fatal(err)
	}

	img := s.YCbCr()
	if img.Y[0] != 20 || img.Y[1] != 40 || img.Cb[0] != 10 || img.Cr[0] != 30 {
		t.Errorf("unpacked Y=%v Cb=%v Cr=%v", img.Y[:2], img.Cb[:1], img.Cr[:1])
	}
}
