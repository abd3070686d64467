package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/dustin/go-humanize"

	"github.com/Vovarama1992/pixelforge/internal/convert"
)

// сколько multipart держим в памяти, остальное уходит во временные файлы запроса
const multipartMemory = 32 << 20

type Converter interface {
	Convert(ctx context.Context, req convert.Request) (*convert.Result, error)
}

type ConvertHandler struct {
	svc       Converter
	log       *logger.ZapLogger
	maxUpload int64
}

func NewConvertHandler(svc Converter, log *logger.ZapLogger, maxUpload int64) *ConvertHandler {
	return &ConvertHandler{svc: svc, log: log, maxUpload: maxUpload}
}

// POST /convert
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		h.tooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	req, err := h.parse(r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		if errors.Is(err, convert.ErrPayloadTooLarge) {
			h.tooLarge(w)
			return
		}
		h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid multipart", Error: err})
		http.Error(w, "invalid multipart: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Convert(r.Context(), req)
	if err != nil {
		if ve, ok := convert.AsValidation(err); ok {
			http.Error(w, ve.Reason, http.StatusBadRequest)
			return
		}
		h.log.Log(logger.LogEntry{Level: "error", Message: "conversion failed", Error: err})
		http.Error(w, "failed to convert images", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("X-Page-Count", strconv.Itoa(res.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (h *ConvertHandler) parse(r *http.Request) (convert.Request, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return convert.Request{}, convert.ErrPayloadTooLarge
		}
		return convert.Request{}, err
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		files = r.MultipartForm.File["images[]"]
	}

	images := make([]convert.ImageInput, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return convert.Request{}, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		images = append(images, convert.ImageInput{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	raw := r.FormValue("compressionLevel")
	level, ok := convert.ParseLevel(raw)
	if !ok && raw != "" {
		h.log.Log(logger.LogEntry{Level: "warn", Message: fmt.Sprintf("unknown compressionLevel %q, using normal", raw)})
	}

	return convert.Request{
		Images: images,
		Options: convert.Options{
			Level:    level,
			Filename: r.FormValue("filename"),
		},
	}, nil
}

func (h *ConvertHandler) tooLarge(w http.ResponseWriter) {
	http.Error(w, "payload exceeds "+humanize.IBytes(uint64(h.maxUpload)), http.StatusRequestEntityTooLarge)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
