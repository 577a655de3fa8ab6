package classifier

import (
	"image"

	"github.com/disintegration/imaging"
)

// Model input geometry: 1x3x224x224 NCHW float32.
const (
	inputSize     = 224
	inputChannels = 3
)

// ImageNet per-channel normalization constants.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess converts a decoded image into the flat NCHW tensor the model
// expects: resize to 224x224, scale to [0,1], subtract the ImageNet mean and
// divide by the std per channel.
func Preprocess(img image.Image) []float32 {
	resized := imaging.Resize(img, inputSize, inputSize, imaging.Lanczos)

	tensor := make([]float32, inputChannels*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			// NRGBA pixel layout from imaging: 4 bytes per pixel.
			offset := resized.PixOffset(x, y)
			for c := 0; c < inputChannels; c++ {
				v := float32(resized.Pix[offset+c]) / 255.0
				tensor[c*plane+y*inputSize+x] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	return tensor
}
