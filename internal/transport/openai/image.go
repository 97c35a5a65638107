package openai

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"os"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
)

// DefaultImageSize is the square edge images are resized to before embedding.
const DefaultImageSize = 224

// imagePreprocessor decodes an image file, converts it to RGB at a fixed square
// size and encodes it as a PNG data URL.
type imagePreprocessor struct {
	size    int
	scaler  draw.Scaler
	encoder *png.Encoder
}

func newImagePreprocessor(size int) *imagePreprocessor {
	if size <= 0 {
		size = DefaultImageSize
	}
	return &imagePreprocessor{
		size:    size,
		scaler:  draw.CatmullRom,
		encoder: &png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// DataURL returns the preprocessed image as data:image/png;base64,...
func (p *imagePreprocessor) DataURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	src, format, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return "", fmt.Errorf("decode image: empty %s image", format)
	}

	// Scale into straight alpha so dropping alpha keeps the original colors.
	dst := image.NewNRGBA(image.Rect(0, 0, p.size, p.size))
	p.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	opaque(dst)

	var buf bytes.Buffer
	if err := p.encoder.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// opaque drops the alpha channel so the model always sees RGB input.
func opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
