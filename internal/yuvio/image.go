package yuvio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/picture"
)

// DecodeImage decodes a PNG, BMP, TIFF or WebP image into a picture of the
// given bit depth and chroma format. Odd dimensions are cropped by one
// sample for 4:2:0. 8-bit samples are scaled up for higher bit depths.
func DecodeImage(r io.Reader, bitDepth int, chroma picture.ChromaFormat) (*picture.Picture, string, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("yuvio: decoding image: %w", err)
	}
	b := img.Bounds()
	f := Format{Width: b.Dx(), Height: b.Dy(), BitDepth: bitDepth, Chroma: chroma}
	if chroma == picture.Chroma420 {
		f.Width &^= 1
		f.Height &^= 1
	}
	if err := f.Validate(); err != nil {
		return nil, name, err
	}

	pic := f.NewPicture()
	shift := uint(bitDepth - 8)
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		fromYCbCr(pic, ycc, shift)
	} else {
		fromRGB(pic, img, shift)
	}
	pic.Extend()
	return pic, name, nil
}

// LoadImage opens path and decodes it with DecodeImage.
func LoadImage(path string, bitDepth int, chroma picture.ChromaFormat) (*picture.Picture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("yuvio: %w", err)
	}
	defer f.Close()
	pic, _, err := DecodeImage(f, bitDepth, chroma)
	return pic, err
}

func fromYCbCr(pic *picture.Picture, img *image.YCbCr, shift uint) {
	b := img.Bounds()
	for y := 0; y < pic.Height(); y++ {
		row := pic.Y.Row(y)
		for x := range row {
			row[x] = uint16(img.Y[img.YOffset(b.Min.X+x, b.Min.Y+y)]) << shift
		}
	}
	if !pic.HasChroma() {
		return
	}
	for y := 0; y < pic.Cb.Height; y++ {
		cb, cr := pic.Cb.Row(y), pic.Cr.Row(y)
		for x := range cb {
			o := img.COffset(b.Min.X+2*x, b.Min.Y+2*y)
			cb[x] = uint16(img.Cb[o]) << shift
			cr[x] = uint16(img.Cr[o]) << shift
		}
	}
}

// fromRGB converts with the full-range BT.601 matrix of image/color and
// averages chroma over 2x2 neighbourhoods.
func fromRGB(pic *picture.Picture, img image.Image, shift uint) {
	b := img.Bounds()
	w, h := pic.Width(), pic.Height()
	var cbSum, crSum []int32
	if pic.HasChroma() {
		cbSum = make([]int32, (w/2)*(h/2))
		crSum = make([]int32, (w/2)*(h/2))
	}
	for y := 0; y < h; y++ {
		row := pic.Y.Row(y)
		for x := range row {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			row[x] = uint16(yy) << shift
			if cbSum != nil {
				i := (y/2)*(w/2) + x/2
				cbSum[i] += int32(cb)
				crSum[i] += int32(cr)
			}
		}
	}
	if cbSum == nil {
		return
	}
	maxVal := dsp.MaxSample(pic.BitDepth())
	for y := 0; y < pic.Cb.Height; y++ {
		cb, cr := pic.Cb.Row(y), pic.Cr.Row(y)
		for x := range cb {
			i := y*(w/2) + x
			cb[x] = dsp.ClipSample(((cbSum[i]+2)>>2)<<shift, maxVal)
			cr[x] = dsp.ClipSample(((crSum[i]+2)>>2)<<shift, maxVal)
		}
	}
}
