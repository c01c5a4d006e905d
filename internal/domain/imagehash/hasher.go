package imagehash

import (
	"fmt"
	"image"
	"math/bits"
	"os"
	"strings"

	_ "image/jpeg"
	_ "image/png"
)

// Algorithm selects the fingerprint computation.
type Algorithm string

const (
	AlgorithmAverage    Algorithm = "average"
	AlgorithmDifference Algorithm = "difference"
	AlgorithmPerceptual Algorithm = "perceptual"
)

// ParseAlgorithm maps a config value to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(s)) {
	case AlgorithmAverage:
		return AlgorithmAverage, nil
	case AlgorithmDifference:
		return AlgorithmDifference, nil
	case AlgorithmPerceptual:
		return AlgorithmPerceptual, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (expected average, difference or perceptual)", s)
	}
}

// Hasher computes fixed-length perceptual fingerprints of frame images.
// Identical inputs always produce identical fingerprints.
type Hasher struct {
	algorithm Algorithm
	hashSize  int
}

// NewHasher validates the settings and returns a hasher. hashSize is the
// grid dimension, 8 to 64; an 8x8 grid yields a 64-bit fingerprint.
func NewHasher(algorithm Algorithm, hashSize int) (*Hasher, error) {
	if _, err := ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	if hashSize < 8 {
		return nil, fmt.Errorf("hash size must be at least 8, got %d", hashSize)
	}
	if hashSize > 64 {
		return nil, fmt.Errorf("hash size must be at most 64, got %d", hashSize)
	}
	return &Hasher{algorithm: algorithm, hashSize: hashSize}, nil
}

// HashFile decodes the image at path and fingerprints it. A decode failure
// means the frame file is corrupt.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	return h.HashImage(img), nil
}

// HashImage fingerprints an already decoded image.
func (h *Hasher) HashImage(img image.Image) string {
	gray := toGray(img)
	switch h.algorithm {
	case AlgorithmDifference:
		return h.differenceHash(gray)
	case AlgorithmPerceptual:
		return h.perceptualHash(gray)
	default:
		return h.averageHash(gray)
	}
}

// averageHash downsamples to hashSize x hashSize and sets a bit for every
// cell at or above the mean luma.
func (h *Hasher) averageHash(g *grayImage) string {
	small := g.resize(h.hashSize, h.hashSize)
	return bitsToHex(thresholdBits(small.pix))
}

// differenceHash downsamples to (hashSize+1) x hashSize and sets a bit
// wherever a cell is at least as bright as its right neighbor.
func (h *Hasher) differenceHash(g *grayImage) string {
	w := h.hashSize + 1
	small := g.resize(w, h.hashSize)

	out := make([]uint8, 0, h.hashSize*h.hashSize)
	for y := 0; y < h.hashSize; y++ {
		for x := 0; x < h.hashSize; x++ {
			left := small.pix[y*w+x]
			right := small.pix[y*w+x+1]
			if left >= right {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return bitsToHex(out)
}

// perceptualHash downsamples to 32x32, then to 8x8, then applies the mean
// threshold. Always 64 bits regardless of hashSize.
func (h *Hasher) perceptualHash(g *grayImage) string {
	tiny := g.resize(32, 32).resize(8, 8)
	return bitsToHex(thresholdBits(tiny.pix))
}

// thresholdBits maps each cell to 1 when at or above the integer mean.
func thresholdBits(pix []uint8) []uint8 {
	if len(pix) == 0 {
		return nil
	}
	var sum uint64
	for _, p := range pix {
		sum += uint64(p)
	}
	avg := uint8(sum / uint64(len(pix)))

	out := make([]uint8, 0, len(pix))
	for _, p := range pix {
		if p >= avg {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// bitsToHex packs bits into hex nibbles, most significant bit first. A
// trailing partial nibble is padded with zero bits.
func bitsToHex(bits []uint8) string {
	var sb strings.Builder
	for i := 0; i < len(bits); i += 4 {
		var v byte
		for j := 0; j < 4 && i+j < len(bits); j++ {
			if bits[i+j] == 1 {
				v |= 1 << (3 - j)
			}
		}
		sb.WriteByte("0123456789abcdef"[v])
	}
	return sb.String()
}

// Similarity scores two fingerprints in [0.0, 1.0] as the fraction of equal
// bits. Fingerprints of different lengths score 0.0; two empty fingerprints
// score 1.0.
func Similarity(a, b string) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	totalBits := len(a) * 4
	if totalBits == 0 {
		return 1.0
	}

	differing := 0
	for i := 0; i < len(a); i++ {
		differing += bits.OnesCount8(hexValue(a[i]) ^ hexValue(b[i]))
	}
	return 1.0 - float64(differing)/float64(totalBits)
}

// hexValue decodes one hex digit; anything else counts as zero.
func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
