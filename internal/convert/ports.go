package convert

import (
	"context"
	"image"
	"path"
	"strings"
	"unicode"
)

type Level string

const (
	LevelNormal     Level = "normal"
	LevelCompressed Level = "compressed"
	LevelUltra      Level = "ultra"
)

// Levels: от самого качественного к самому сжатому.
var Levels = []Level{LevelNormal, LevelCompressed, LevelUltra}

// ParseLevel: незнакомое или пустое значение превращается в normal, ok=false.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelUltra:
		return LevelUltra, true
	case LevelCompressed:
		return LevelCompressed, true
	case LevelNormal:
		return LevelNormal, true
	default:
		return LevelNormal, false
	}
}

const DefaultFilename = "converted"

type ImageInput struct {
	Name     string
	MimeType string
	Data     []byte
}

type Options struct {
	Level    Level
	Filename string
}

type Request struct {
	Images  []ImageInput
	Options Options
}

type Result struct {
	Data        []byte
	ContentType string
	Filename    string
	Pages       int
}

// Decoded: уже разобранная картинка, живёт в рамках одного запроса.
type Decoded struct {
	Name   string
	Format string
	Image  image.Image
}

// Transformer пережимает одну картинку под пресет.
type Transformer interface {
	Decode(img ImageInput) (Decoded, error)
	Transform(ctx context.Context, img Decoded, level Level) (Encoded, error)
}

type Encoded struct {
	Bytes    []byte
	MimeType string
	Width    int
	Height   int
}

// SanitizeFilename оставляет от имени только безопасную подсказку для скачивания.
// Путь на сервере из него никогда не строится.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), r == '"', r == '/', r == '\\':
			return -1
		}
		return r
	}, name)

	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return DefaultFilename
	}
	if r := []rune(name); len(r) > 200 {
		name = string(r[:200])
	}
	return name
}
