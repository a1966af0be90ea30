// Package render composes the window image: live video fitted into the window
// with black bars, or the animated placeholder when nothing is connected.
package render

import "image"

// Fit returns the largest rectangle with the aspect ratio of srcW x srcH that
// fits inside dstW x dstH, centered. The side that does not fill the window
// is rounded to the nearest pixel.
func Fit(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	sw, sh := int64(srcW), int64(srcH)
	dw, dh := int64(dstW), int64(dstH)

	// destination relatively wider: full height, pillarbox left/right
	if dw*sh > sw*dh {
		w := int(roundDiv(dh*sw, sh))
		if w < 1 {
			w = 1
		}
		x := (dstW - w) / 2
		return image.Rect(x, 0, x+w, dstH)
	}

	// full width, letterbox top/bottom
	h := int(roundDiv(dw*sh, sw))
	if h < 1 {
		h = 1
	}
	y := (dstH - h) / 2
	return image.Rect(0, y, dstW, y+h)
}

func roundDiv(n, d int64) int64 {
	return (2*n + d) / (2 * d)
}
