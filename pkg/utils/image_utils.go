package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaskExt is the extension every mask is stored with.
const MaskExt = ".png"

var ErrNoDataPrefix = errors.New("mask data has no data-url prefix")

type ImageProcessor struct {
	log *zap.Logger
}

func NewImageProcessor(log *zap.Logger) *ImageProcessor {
	return &ImageProcessor{log: log}
}

// Stem strips the last extension from name.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// MaskFilename derives the mask name for an image: foo.jpg -> foo.png.
func MaskFilename(imageName string) string {
	return Stem(imageName) + MaskExt
}

// IsBareName reports whether name is a plain file name: no directory part
// and not "." or "..". Only the separators of the host OS count, so a
// backslash is an ordinary character on Unix.
func IsBareName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator)
}

// IsAllowedImage reports whether name ends with one of the allowed
// extensions, ignoring case.
func IsAllowedImage(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// DecodeDataURL takes "<prefix>,<base64>" and returns the decoded bytes.
func DecodeDataURL(data string) ([]byte, error) {
	idx := strings.IndexByte(data, ',')
	if idx < 0 {
		return nil, ErrNoDataPrefix
	}
	payload := strings.TrimSpace(data[idx+1:])

	b, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return b, nil
	}
	if b2, err2 := base64.URLEncoding.DecodeString(payload); err2 == nil {
		return b2, nil
	}
	return nil, fmt.Errorf("invalid base64 payload: %w", err)
}

// ToGray converts img to 8-bit luma using the ITU-R 601 weights on
// non-premultiplied RGB; alpha is dropped.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return gray
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			l := (19595*uint32(c.R) + 38470*uint32(c.G) + 7471*uint32(c.B) + 1<<15) >> 16
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(l)})
		}
	}
	return gray
}

// DecodeMask decodes a data-url mask payload into a grayscale raster.
func (p *ImageProcessor) DecodeMask(data string) (*image.Gray, error) {
	raw, err := DecodeDataURL(data)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask image: %w", err)
	}

	p.log.Debug("Mask decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	return ToGray(img), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BlankMask returns a PNG-encoded all-zero mask with the dimensions of the
// image read from src. Only the image header is decoded.
func (p *ImageProcessor) BlankMask(src io.Reader) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return nil, err
	}

	data, err := EncodePNG(image.NewGray(image.Rect(0, 0, cfg.Width, cfg.Height)))
	if err != nil {
		return nil, err
	}

	p.log.Debug("Blank mask synthesized",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height))

	return data, nil
}

// WriteFile streams src into dst, truncating any existing file.
func WriteFile(dst string, src io.Reader) error {
	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, src); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}
