// Package testutil generates in-memory image fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// Noise returns a w×h image filled with deterministic pseudo-random pixels.
// Noise compresses badly, which keeps preset size differences visible.
func Noise(w, h int, seed int64) *image.NRGBA {
	rnd := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rnd.Intn(256)),
				G: uint8((x * 255) / w),
				B: uint8((y * 255) / h),
				A: 255,
			})
		}
	}
	return img
}

// Solid returns a w×h image of one colour.
func Solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func JPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// HugePNG returns a few hundred bytes of PNG whose header claims w×h pixels.
// Only the IHDR chunk is rewritten, so DecodeConfig reports the fake size
// while a full decode would fail or allocate w*h*4 bytes.
func HugePNG(t testing.TB, w, h uint32) []byte {
	t.Helper()
	data := PNG(t, Solid(1, 1, color.White))
	// signature(8) + length(4) + "IHDR"(4), затем width, height, ..., crc
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}
