package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"

	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type compressed struct {
	data    []byte
	mime    string
	width   int
	height  int
	quality int
}

// targetDimensions caps the longer edge at MaxDimension while preserving
// aspect ratio. Images already within the cap are left alone.
func targetDimensions(w, h int) (int, int) {
	if w <= MaxDimension && h <= MaxDimension {
		return w, h
	}
	if w > h {
		return MaxDimension, int(float64(h) / float64(w) * MaxDimension)
	}
	return int(float64(w) / float64(h) * MaxDimension), MaxDimension
}

// compress decodes, downscales and re-encodes the file, walking quality
// down from 90 in steps of 10 until the target byte budget is met or the
// floor of 30 is hit. The floor result is returned even when still over
// budget. PNG and WebP inputs come out as JPEG for better compression.
func compress(f File, targetMaxMB float64) (compressed, error) {
	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return compressed{}, fmt.Errorf("decode %s: %w", f.Name, err)
	}

	bounds := src.Bounds()
	w, h := targetDimensions(bounds.Dx(), bounds.Dy())

	var scaled image.Image = src
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		scaled = dst
	}

	targetBytes := int(targetMaxMB * 1024 * 1024)
	quality := qualityStart
	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return compressed{}, fmt.Errorf("encode %s: %w", f.Name, err)
		}
		if buf.Len() <= targetBytes || quality <= qualityFloor {
			break
		}
		quality -= qualityStep
	}
	if buf.Len() > targetBytes {
		log.Printf("imaging: %s still %d bytes at quality floor", f.Name, buf.Len())
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return compressed{data: out, mime: "image/jpeg", width: w, height: h, quality: quality}, nil
}
