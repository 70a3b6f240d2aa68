// Package capture writes frames to PNG files and the mixed sound output to
// WAV files.
package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"golang.org/x/image/draw"
)

// FrameImage wraps an RGBA framebuffer of w x h pixels, scaled up by an
// integer factor with nearest-neighbour sampling so pixels stay square.
func FrameImage(pix []byte, w, h, scale int) *image.RGBA {
	src := &image.RGBA{
		Pix:    append([]byte(nil), pix[:w*h*4]...),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SavePNG writes a framebuffer to path.
func SavePNG(path string, pix []byte, w, h, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, FrameImage(pix, w, h, scale)); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// ScreenshotName returns a timestamped file name in the working directory.
func ScreenshotName(now time.Time) string {
	return fmt.Sprintf("screenshot_%s.png", now.Format("20060102_150405"))
}
