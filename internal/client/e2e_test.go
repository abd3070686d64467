package client

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vovarama1992/pixelforge/internal/config"
	"github.com/Vovarama1992/pixelforge/internal/convert"
	"github.com/Vovarama1992/pixelforge/internal/delivery"
	"github.com/Vovarama1992/pixelforge/internal/pdf"
	"github.com/Vovarama1992/pixelforge/internal/testutil"
)

func TestSubmit_AgainstService(t *testing.T) {
	cfg := config.Default()
	zl := logger.NewZapLogger(zap.NewNop().Sugar())

	asm, err := pdf.NewPdfcpuAssembler("")
	require.NoError(t, err)
	svc := convert.NewService(convert.NewImagingTransformer(nil, convert.DefaultMaxPixels), pdf.NewPDFService(asm), zl)
	srv := httptest.NewServer(delivery.NewRouter(cfg, delivery.NewConvertHandler(svc, zl, cfg.MaxUploadBytes), delivery.NewHealthHandler("pixelforge")))
	defer srv.Close()

	dir := t.TempDir()
	s := NewSubmitter(srv.URL, DirDownloader{Dir: dir}, srv.Client())
	s.SelectFiles([]File{
		{Name: "a.jpg", Data: testutil.JPEG(t, testutil.Noise(80, 60, 1))},
		{Name: "b.png", Data: testutil.PNG(t, testutil.Noise(60, 80, 2))},
	})
	s.SetCompressionLevel("ultra")
	s.SetFilename("scan")

	path, err := s.Submit(context.Background())
	require.NoError(t, err)

	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	n, err := pdf.PageCount(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// битый файл: 4xx, выбор остаётся
	s.SelectFiles([]File{{Name: "broken.jpg", Data: []byte("nope")}})
	_, err = s.Submit(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 400, te.StatusCode)
	assert.Len(t, s.Files(), 1)
}
