package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// CropRegion cuts box out of a JPEG frame and re-encodes it. The box is
// clamped to the frame; a box with no area inside the frame returns
// (nil, false, nil) so callers can skip it without treating it as a fault.
func CropRegion(frame []byte, box BoundingBox) ([]byte, bool, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(bounds)
	if rect.Empty() {
		return nil, false, nil
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	sub, ok := img.(subImager)
	if !ok {
		return nil, false, fmt.Errorf("decoded image type %T does not support cropping", img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sub.SubImage(rect), &jpeg.Options{Quality: 85}); err != nil {
		return nil, false, fmt.Errorf("failed to encode crop: %w", err)
	}

	return buf.Bytes(), true, nil
}
