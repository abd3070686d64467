package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

type PresetSpec struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	// Lossless: PNG-источники остаются PNG без потерь.
	Lossless bool
}

var DefaultPresets = map[Level]PresetSpec{
	LevelNormal:     {Quality: 95, Lossless: true},
	LevelCompressed: {MaxWidth: 1600, MaxHeight: 1600, Quality: 70},
	LevelUltra:      {MaxWidth: 1024, MaxHeight: 1024, Quality: 40},
}

// DefaultMaxPixels: 100 мегапикселей, декод такой картинки уже сотни мегабайт памяти.
const DefaultMaxPixels int64 = 100_000_000

type ImagingTransformer struct {
	presets   map[Level]PresetSpec
	maxPixels int64
}

// NewImagingTransformer: maxPixels <= 0 отключает проверку размера.
func NewImagingTransformer(presets map[Level]PresetSpec, maxPixels int64) *ImagingTransformer {
	if presets == nil {
		presets = DefaultPresets
	}
	return &ImagingTransformer{presets: presets, maxPixels: maxPixels}
}

func (t *ImagingTransformer) Decode(in ImageInput) (Decoded, error) {
	if len(in.Data) == 0 {
		return Decoded{}, &ValidationError{Reason: fmt.Sprintf("image %q is empty", in.Name)}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return Decoded{}, &ValidationError{Reason: fmt.Sprintf("file %q%s is not a supported image", in.Name, declared(in.MimeType)), Err: err}
	}

	// размер смотрим по заголовку, до того как декодер выделит память под пиксели
	if px := int64(cfg.Width) * int64(cfg.Height); t.maxPixels > 0 && px > t.maxPixels {
		return Decoded{}, &ValidationError{Reason: fmt.Sprintf(
			"image %q is %dx%d, more than %.1f megapixels allowed",
			in.Name, cfg.Width, cfg.Height, float64(t.maxPixels)/1e6,
		)}
	}

	img, err := imaging.Decode(bytes.NewReader(in.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Decoded{}, &ValidationError{Reason: fmt.Sprintf("file %q%s could not be decoded", in.Name, declared(in.MimeType)), Err: err}
	}

	return Decoded{Name: in.Name, Format: format, Image: img}, nil
}

func declared(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	return " (sent as " + mimeType + ")"
}

// Transform кодирует картинку для каждого уровня от normal до запрошенного
// и на каждом шаге оставляет меньший результат. Поэтому ultra <= compressed <= normal.
func (t *ImagingTransformer) Transform(ctx context.Context, d Decoded, level Level) (Encoded, error) {
	level, _ = ParseLevel(string(level))
	var best *Encoded

	for _, l := range Levels {
		if err := ctx.Err(); err != nil {
			return Encoded{}, err
		}

		enc, err := t.encode(d, t.preset(l))
		if err != nil {
			return Encoded{}, fmt.Errorf("encode %q as %s: %w", d.Name, l, err)
		}
		if best == nil || len(enc.Bytes) <= len(best.Bytes) {
			best = &enc
		}

		if l == level {
			break
		}
	}

	return *best, nil
}

func (t *ImagingTransformer) preset(l Level) PresetSpec {
	if p, ok := t.presets[l]; ok {
		return p
	}
	return DefaultPresets[LevelNormal]
}

func (t *ImagingTransformer) encode(d Decoded, p PresetSpec) (Encoded, error) {
	img := d.Image

	b := img.Bounds()
	if p.MaxWidth > 0 && p.MaxHeight > 0 && (b.Dx() > p.MaxWidth || b.Dy() > p.MaxHeight) {
		img = imaging.Fit(img, p.MaxWidth, p.MaxHeight, imaging.Lanczos)
	}
	b = img.Bounds()

	var buf bytes.Buffer
	if p.Lossless && d.Format == "png" {
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return Encoded{}, err
		}
		return Encoded{Bytes: buf.Bytes(), MimeType: "image/png", Width: b.Dx(), Height: b.Dy()}, nil
	}

	if err := imaging.Encode(&buf, flatten(img), imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		return Encoded{}, err
	}
	return Encoded{Bytes: buf.Bytes(), MimeType: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// flatten кладёт прозрачные пиксели на белый фон, у JPEG нет альфы.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
