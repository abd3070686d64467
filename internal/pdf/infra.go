package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var configDirOnce sync.Once

// pdfcpu по умолчанию лезет в ~/.config/pdfcpu, на сервере это не нужно
func disableConfigDir() {
	configDirOnce.Do(api.DisableConfigDir)
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

type PdfcpuAssembler struct {
	pageForm string
}

// NewPdfcpuAssembler: при пустом pageForm страница по размеру картинки,
// иначе ("A4", "Letter") картинка центрируется и вписывается в лист.
func NewPdfcpuAssembler(pageForm string) (*PdfcpuAssembler, error) {
	disableConfigDir()

	a := &PdfcpuAssembler{pageForm: pageForm}
	if _, err := a.importConfig(); err != nil {
		return nil, fmt.Errorf("invalid page form %q: %w", pageForm, err)
	}
	return a, nil
}

func (a *PdfcpuAssembler) importConfig() (*pdfcpu.Import, error) {
	if a.pageForm == "" {
		return pdfcpu.DefaultImportConfig(), nil
	}
	return api.Import(
		fmt.Sprintf("formsize:%s, position:c, scalefactor:1.0", a.pageForm),
		types.POINTS,
	)
}

func (a *PdfcpuAssembler) Assemble(ctx context.Context, pages []Page) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imp, err := a.importConfig()
	if err != nil {
		return nil, err
	}

	readers := make([]io.Reader, 0, len(pages))
	for i, p := range pages {
		if !importable(p.MimeType) {
			return nil, fmt.Errorf("page %d (%s): unsupported image type %q", i+1, p.FileName, p.MimeType)
		}
		readers = append(readers, bytes.NewReader(p.Bytes))
	}

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, imp, newConfiguration()); err != nil {
		return nil, fmt.Errorf("pdfcpu import images: %w", err)
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("empty document generated")
	}

	return out.Bytes(), nil
}

// pdfcpu встраивает jpeg как есть, png перекодирует; пустой тип не проверяем
func importable(mimeType string) bool {
	switch mimeType {
	case "", "image/jpeg", "image/png":
		return true
	}
	return false
}
