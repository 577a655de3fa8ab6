package validator

import (
	"image"

	"github.com/disintegration/imaging"
)

// Heuristic thresholds. Channel values are on the 0-255 scale throughout.
const (
	// Channels mutually within this distance count as near-grayscale
	// (white, black, silver vehicles).
	grayscaleChannelSpread = 30

	// Dominance ratios for clearly colored vehicles.
	redDominanceRatio  = 1.5
	coolDominanceRatio = 1.2

	// Identity cards sit on a near-white background.
	documentMinRed   = 200
	documentMinGreen = 180

	// Skin-tone band in HSV (PIL-style 0-255 hue scale) and the minimum
	// fraction of pixels inside it for the portrait fallback.
	skinHueMax       = 35
	skinSatMin       = 20
	skinValMin       = 40
	skinCoverageMin  = 0.15
	skinSampleWidth  = 100
	skinSampleHeight = 100
)

// downscale bounds an image to the profile's maximum dimensions so heuristic
// statistics stay cheap and stable across camera resolutions.
func downscale(img image.Image, maxWidth, maxHeight int) image.Image {
	if maxWidth <= 0 || maxHeight <= 0 {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth && bounds.Dy() <= maxHeight {
		return img
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}

// aspectRatio returns width/height for the decoded image.
func aspectRatio(img image.Image) float64 {
	bounds := img.Bounds()
	if bounds.Dy() == 0 {
		return 0
	}
	return float64(bounds.Dx()) / float64(bounds.Dy())
}

// meanRGB computes the per-channel mean on the 0-255 scale.
func meanRGB(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())
	if total == 0 {
		return 0, 0, 0
	}

	var sumR, sumG, sumB float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			sumR += float64(pr >> 8)
			sumG += float64(pg >> 8)
			sumB += float64(pb >> 8)
		}
	}
	return sumR / total, sumG / total, sumB / total
}

// isVehicleColor is the coarse vehicle pre-filter: the dominant color must be
// near-grayscale or have a clearly dominant red, blue, or green channel. It
// is not a vehicle detector; it exists to reject obviously-wrong submissions
// before paying for inference.
func isVehicleColor(r, g, b float64) bool {
	grayscale := abs(r-g) < grayscaleChannelSpread && abs(g-b) < grayscaleChannelSpread
	red := r > g*redDominanceRatio && r > b*redDominanceRatio
	blue := b > r*coolDominanceRatio && b > g*coolDominanceRatio
	green := g > r*coolDominanceRatio && g > b*coolDominanceRatio
	return grayscale || red || blue || green
}

// isDocumentBackground checks for the dominant light background expected of
// an identity card photo.
func isDocumentBackground(r, g, _ float64) bool {
	return r > documentMinRed && g > documentMinGreen
}

// skinCoverage returns the fraction of pixels falling inside the skin-tone
// HSV band. The image is sampled at 100x100 for speed.
func skinCoverage(img image.Image) float64 {
	sample := imaging.Resize(img, skinSampleWidth, skinSampleHeight, imaging.Box)

	var matched int
	total := skinSampleWidth * skinSampleHeight
	for y := 0; y < skinSampleHeight; y++ {
		for x := 0; x < skinSampleWidth; x++ {
			offset := sample.PixOffset(x, y)
			h, s, v := rgbToHSV(sample.Pix[offset], sample.Pix[offset+1], sample.Pix[offset+2])
			if h > 0 && h < skinHueMax && s > skinSatMin && s < 255 && v > skinValMin && v < 255 {
				matched++
			}
		}
	}
	return float64(matched) / float64(total)
}

// rgbToHSV converts an sRGB pixel to HSV on the 0-255 scale for all three
// components (hue is degrees*255/360), matching the band thresholds above.
func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)

	maxC := rf
	if gf > maxC {
		maxC = gf
	}
	if bf > maxC {
		maxC = bf
	}
	minC := rf
	if gf < minC {
		minC = gf
	}
	if bf < minC {
		minC = bf
	}

	v = maxC
	delta := maxC - minC
	if maxC == 0 || delta == 0 {
		return 0, 0, v
	}
	s = delta / maxC * 255

	var hueDeg float64
	switch maxC {
	case rf:
		hueDeg = 60 * ((gf - bf) / delta)
	case gf:
		hueDeg = 60 * ((bf-rf)/delta + 2)
	default:
		hueDeg = 60 * ((rf-gf)/delta + 4)
	}
	if hueDeg < 0 {
		hueDeg += 360
	}
	return hueDeg * 255 / 360, s, v
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
