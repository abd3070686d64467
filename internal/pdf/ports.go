package pdf

import (
	"context"
)

const ContentType = "application/pdf"

// Page: одна картинка, которая станет одной страницей документа.
type Page struct {
	Bytes    []byte
	FileName string
	MimeType string
}

type Assembler interface {
	Assemble(ctx context.Context, pages []Page) ([]byte, error)
}
