package validator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"
)

type decodeResult struct {
	img    image.Image
	format string
	err    error
}

// decodeImage decodes the upload under a wall-clock budget. Decoding runs in
// its own goroutine because the stdlib decoders are not cancelable; on
// timeout the result is discarded and the stage reports failure.
func decodeImage(ctx context.Context, data []byte, budget time.Duration) (image.Image, string, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ch := make(chan decodeResult, 1)
	go func() {
		img, format, err := image.Decode(bytes.NewReader(data))
		ch <- decodeResult{img: img, format: format, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, "", res.err
		}
		if res.format != "jpeg" && res.format != "png" {
			return nil, "", fmt.Errorf("unsupported image format %q", res.format)
		}
		return res.img, res.format, nil
	}
}
