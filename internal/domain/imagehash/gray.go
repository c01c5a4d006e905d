package imagehash

import "image"

// grayImage is a flat 8-bit luma buffer, row-major.
type grayImage struct {
	w, h int
	pix  []uint8
}

// toGray converts an image to 8-bit luma with Rec. 601 weights.
func toGray(img image.Image) *grayImage {
	b := img.Bounds()
	g := &grayImage{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			g.pix[i] = uint8(((299*r + 587*gr + 114*bl + 500) / 1000) >> 8)
			i++
		}
	}
	return g
}

// resize downsamples (or upsamples) with box averaging: every destination
// cell is the integer mean of the source rectangle it covers. Deterministic,
// so the same frame always yields the same fingerprint.
func (g *grayImage) resize(dw, dh int) *grayImage {
	out := &grayImage{w: dw, h: dh, pix: make([]uint8, dw*dh)}
	if g.w == 0 || g.h == 0 {
		return out
	}

	for y := 0; y < dh; y++ {
		y0 := y * g.h / dh
		y1 := (y + 1) * g.h / dh
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < dw; x++ {
			x0 := x * g.w / dw
			x1 := (x + 1) * g.w / dw
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum, n uint64
			for sy := y0; sy < y1; sy++ {
				row := sy * g.w
				for sx := x0; sx < x1; sx++ {
					sum += uint64(g.pix[row+sx])
					n++
				}
			}
			out.pix[y*dw+x] = uint8(sum / n)
		}
	}
	return out
}
