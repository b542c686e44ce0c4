package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var allowed = []string{".jpg", ".jpeg", ".png"}

func encodeImage(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	default:
		t.Fatalf("unsupported format: %s", format)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func dataURL(b []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
}

func TestMaskFilename(t *testing.T) {
	cases := map[string]string{
		"foo.jpg":       "foo.png",
		"foo.PNG":       "foo.png",
		"lane.v2.jpeg":  "lane.v2.png",
		"noext":         "noext.png",
		"dir.d/img.jpg": "dir.d/img.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskFilename(in), in)
	}
}

func TestIsAllowedImage(t *testing.T) {
	assert.True(t, IsAllowedImage("a.jpg", allowed))
	assert.True(t, IsAllowedImage("a.JPEG", allowed))
	assert.True(t, IsAllowedImage("a.Png", allowed))
	assert.False(t, IsAllowedImage("a.txt", allowed))
	assert.False(t, IsAllowedImage("png", allowed))
	assert.False(t, IsAllowedImage("", allowed))
}

func TestDecodeDataURL(t *testing.T) {
	t.Run("strips the prefix", func(t *testing.T) {
		got, err := DecodeDataURL(dataURL([]byte("hello")))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
	})

	t.Run("accepts url-safe base64", func(t *testing.T) {
		payload := []byte{0xfb, 0xff, 0xfe}
		got, err := DecodeDataURL("x," + base64.URLEncoding.EncodeToString(payload))
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("rejects a payload without comma", func(t *testing.T) {
		_, err := DecodeDataURL("aGVsbG8=")
		assert.ErrorIs(t, err, ErrNoDataPrefix)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := DecodeDataURL("data:image/png;base64,!!!not-base64!!!")
		assert.Error(t, err)
	})
}

func TestToGray(t *testing.T) {
	t.Run("keeps gray values", func(t *testing.T) {
		src := image.NewGray(image.Rect(0, 0, 3, 2))
		src.SetGray(1, 1, color.Gray{Y: 200})
		src.SetGray(2, 0, color.Gray{Y: 37})

		got := ToGray(src)
		assert.Equal(t, src.Pix, got.Pix)
	})

	t.Run("converts rgba with luma weights", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
		src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		src.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 255})
		src.SetNRGBA(2, 0, color.NRGBA{G: 128, B: 128, A: 0})

		got := ToGray(src)
		assert.Equal(t, uint8(255), got.GrayAt(0, 0).Y)
		assert.Equal(t, uint8(76), got.GrayAt(1, 0).Y)
		assert.Equal(t, uint8(90), got.GrayAt(2, 0).Y)
	})

	t.Run("rebases offset bounds", func(t *testing.T) {
		src := image.NewGray(image.Rect(0, 0, 4, 4))
		src.SetGray(2, 2, color.Gray{Y: 9})
		sub := src.SubImage(image.Rect(2, 2, 4, 4))

		got := ToGray(sub)
		assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
		assert.Equal(t, uint8(9), got.GrayAt(0, 0).Y)
	})
}

func TestImageProcessor_DecodeMask(t *testing.T) {
	p := NewImageProcessor(zap.NewNop())

	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.RGBA{255, 255, 255, 255})

	got, err := p.DecodeMask(dataURL(encodeImage(t, src, "png")))
	require.NoError(t, err)
	assert.Equal(t, 4, got.Bounds().Dx())
	assert.Equal(t, 3, got.Bounds().Dy())
	assert.Equal(t, uint8(255), got.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), got.GrayAt(0, 0).Y)

	_, err = p.DecodeMask(dataURL([]byte("this is not an image")))
	assert.Error(t, err)
}

func TestImageProcessor_BlankMask(t *testing.T) {
	p := NewImageProcessor(zap.NewNop())

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	data, err := p.BlankMask(bytes.NewReader(encodeImage(t, src, "jpeg")))
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
	for _, v := range ToGray(img).Pix {
		require.Zero(t, v)
	}

	_, err = p.BlankMask(strings.NewReader("junk"))
	assert.Error(t, err)
}

func TestIsBareName(t *testing.T) {
	for _, name := range []string{"a.jpg", "lane 1.png", ".png", "a..b.jpg"} {
		assert.True(t, IsBareName(name), name)
	}
	for _, name := range []string{"", ".", "..", "dir/a.jpg", "../a.jpg", "/a.jpg"} {
		assert.False(t, IsBareName(name), name)
	}

	// A backslash only separates paths on Windows.
	assert.Equal(t, runtime.GOOS != "windows", IsBareName(`a\b.jpg`))
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")

	require.NoError(t, WriteFile(path, strings.NewReader("first version")))
	require.NoError(t, WriteFile(path, strings.NewReader("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}
