package common

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"
)

// RGBAImage is decoded pixel data ready for a texture upload: 4 bytes per pixel, rows tightly packed.
type RGBAImage struct {
	Pix    []byte
	Width  int
	Height int
}

// BytesPerRow returns the row pitch of the pixel data.
func (i RGBAImage) BytesPerRow() int {
	return i.Width * 4
}

// DecodeRGBA decodes a PNG or JPEG stream into RGBA pixels. Images whose larger side exceeds
// maxSize are scaled down with Catmull-Rom filtering, keeping the aspect ratio.
//
// Parameters:
//   - r: the encoded image
//   - maxSize: the largest allowed side in pixels; <= 0 disables scaling
//
// Returns:
//   - RGBAImage: the pixels
//   - error: a decode error
func DecodeRGBA(r io.Reader, maxSize int) (RGBAImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return RGBAImage{}, fmt.Errorf("decode image: %w", err)
	}

	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, src.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	}
	return RGBAImage{Pix: dst.Pix, Width: w, Height: h}, nil
}

// LoadRGBA opens and decodes an image file with DecodeRGBA.
//
// Parameters:
//   - path: the file to read
//   - maxSize: the largest allowed side in pixels; <= 0 disables scaling
//
// Returns:
//   - RGBAImage: the pixels
//   - error: an open or decode error
func LoadRGBA(path string, maxSize int) (RGBAImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return RGBAImage{}, err
	}
	defer f.Close()

	img, err := DecodeRGBA(f, maxSize)
	if err != nil {
		return RGBAImage{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
