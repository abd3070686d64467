package convert

import (
	"context"
	"fmt"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Vovarama1992/pixelforge/internal/pdf"
)

const serviceName = "pixelforge"

type Service struct {
	tr  Transformer
	pdf *pdf.PDFService
	log *logger.ZapLogger
}

func NewService(tr Transformer, pdfService *pdf.PDFService, log *logger.ZapLogger) *Service {
	return &Service{tr: tr, pdf: pdfService, log: log}
}

// Convert собирает из картинок один PDF, по картинке на страницу, в исходном порядке.
// Любая ошибка обрывает весь запрос, частичный документ не возвращается.
func (s *Service) Convert(ctx context.Context, req Request) (*Result, error) {
	id := requestID(ctx)

	if len(req.Images) == 0 {
		return nil, &ValidationError{Reason: ErrNoImages.Error(), Err: ErrNoImages}
	}

	level, _ := ParseLevel(string(req.Options.Level))
	filename := SanitizeFilename(req.Options.Filename)

	s.logInfo(fmt.Sprintf("[convert %s] start images=%d level=%s", id, len(req.Images), level))

	// 1. сначала проверяем, что всё декодируется, до любой тяжёлой работы
	decoded := make([]Decoded, 0, len(req.Images))
	for _, in := range req.Images {
		d, err := s.tr.Decode(in)
		if err != nil {
			s.logWarn(fmt.Sprintf("[convert %s] decode failed", id), err)
			return nil, err
		}
		decoded = append(decoded, d)
	}

	// 2. пресет на каждую картинку
	pages := make([]pdf.Page, 0, len(decoded))
	for i, d := range decoded {
		enc, err := s.tr.Transform(ctx, d, level)
		if err != nil {
			s.logError(fmt.Sprintf("[convert %s] transform failed page=%d", id, i+1), err)
			return nil, &ConversionError{Op: "transform", Err: err}
		}
		pages = append(pages, pdf.Page{
			Bytes:    enc.Bytes,
			FileName: d.Name,
			MimeType: enc.MimeType,
		})
	}

	// 3. PDF
	doc, err := s.pdf.Assemble(ctx, pages)
	if err != nil {
		s.logError(fmt.Sprintf("[convert %s] assemble failed", id), err)
		return nil, &ConversionError{Op: "assemble", Err: err}
	}

	n, err := pdf.PageCount(doc)
	if err != nil {
		s.logError(fmt.Sprintf("[convert %s] page count failed", id), err)
		return nil, &ConversionError{Op: "verify", Err: err}
	}
	if n != len(pages) {
		err := fmt.Errorf("document has %d pages, expected %d", n, len(pages))
		s.logError(fmt.Sprintf("[convert %s] page mismatch", id), err)
		return nil, &ConversionError{Op: "verify", Err: err}
	}

	s.logInfo(fmt.Sprintf("[convert %s] done pages=%d bytes=%d", id, n, len(doc)))

	return &Result{
		Data:        doc,
		ContentType: pdf.ContentType,
		Filename:    filename + ".pdf",
		Pages:       n,
	}, nil
}

// requestID берёт id, выданный chi middleware.RequestID; вне HTTP генерирует свой.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Service) logInfo(msg string) {
	s.log.Log(logger.LogEntry{Level: "info", Message: msg, Service: serviceName})
}

func (s *Service) logWarn(msg string, err error) {
	s.log.Log(logger.LogEntry{Level: "warn", Message: msg, Service: serviceName, Error: err})
}

func (s *Service) logError(msg string, err error) {
	s.log.Log(logger.LogEntry{Level: "error", Message: msg, Service: serviceName, Error: err})
}
