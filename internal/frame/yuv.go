package frame

import "image"

// unpackUYVY splits packed U0 Y0 V0 Y1 macropixels into the planes of a 4:2:2
// image.YCbCr.
func unpackUYVY(dst *image.YCbCr, src []byte, stride, w, h int) {
	pairs := w / 2
	for y := 0; y < h; y++ {
		row := src[y*stride:]
		yRow := dst.Y[y*dst.YStride:]
		cbRow := dst.Cb[y*dst.CStride:]
		crRow := dst.Cr[y*dst.CStride:]

		for i := 0; i < pairs; i++ {
			m := row[i*4 : i*4+4]
			cbRow[i] = m[0]
			yRow[2*i] = m[1]
			crRow[i] = m[2]
			yRow[2*i+1] = m[3]
		}
		if w%2 == 1 {
			m := row[pairs*4:]
			cbRow[pairs] = m[0]
			yRow[2*pairs] = m[1]
			if len(m) > 2 {
				crRow[pairs] = m[2]
			}
		}
	}
}
