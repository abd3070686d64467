package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type PDFService struct {
	asm Assembler
}

func NewPDFService(a Assembler) *PDFService {
	return &PDFService{asm: a}
}

func (s *PDFService) Assemble(ctx context.Context, pages []Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to assemble")
	}
	return s.asm.Assemble(ctx, pages)
}

// PageCount: сколько страниц в готовом документе.
func PageCount(doc []byte) (int, error) {
	disableConfigDir()
	return api.PageCount(bytes.NewReader(doc), newConfiguration())
}
