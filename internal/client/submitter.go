package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sync"
)

const (
	DefaultLevel    = "normal"
	DefaultFilename = "converted"

	// UserMessage: всё, что показываем пользователю при любой ошибке сети/сервера.
	UserMessage = "Conversion failed. Please try again."
)

var (
	ErrNothingStaged = errors.New("no files selected")
	ErrSubmitting    = errors.New("conversion already in progress")
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// TransportError: сеть упала или сервер ответил не 2xx.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion request failed: %v", e.Err)
	}
	return fmt.Sprintf("conversion request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Downloader interface {
	Save(name string, data []byte) (string, error)
}

type Submitter struct {
	mu sync.Mutex

	client   *http.Client
	endpoint string
	dl       Downloader

	files    []File
	level    string
	filename string
	state    State
}

func NewSubmitter(baseURL string, dl Downloader, httpClient *http.Client) *Submitter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Submitter{
		client:   httpClient,
		endpoint: Endpoint(baseURL, "/convert"),
		dl:       dl,
		level:    DefaultLevel,
		filename: DefaultFilename,
	}
}

// SelectFiles заменяет текущий набор целиком. Пустой набор игнорируется.
func (s *Submitter) SelectFiles(files []File) {
	if len(files) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]File(nil), files...)
}

func (s *Submitter) SetCompressionLevel(v string) {
	s.mu.Lock()
	s.level = v
	s.mu.Unlock()
}

func (s *Submitter) SetFilename(v string) {
	s.mu.Lock()
	s.filename = v
	s.mu.Unlock()
}

func (s *Submitter) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]File(nil), s.files...)
}

func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanSubmit: кнопка активна только в idle и при непустом наборе.
func (s *Submitter) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateIdle && len(s.files) > 0
}

// Submit отправляет один POST и сохраняет ответ как <filename>.pdf.
// Набор файлов после ошибки не трогается, повтор только руками.
func (s *Submitter) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return "", ErrSubmitting
	}
	if len(s.files) == 0 {
		s.mu.Unlock()
		return "", ErrNothingStaged
	}
	files := append([]File(nil), s.files...)
	level, filename := s.level, s.filename
	s.state = StateSubmitting
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
	}()

	body, contentType, err := buildBody(files, level, filename)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &TransportError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	return s.dl.Save(filename+".pdf", blob)
}

// buildBody: images по порядку выбора, потом compressionLevel, потом filename.
func buildBody(files []File, level, filename string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     "images",
			"filename": filepath.Base(f.Name),
		}))
		h.Set("Content-Type", mimeTypeOf(f))

		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.WriteField("compressionLevel", level); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("filename", filename); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

func mimeTypeOf(f File) string {
	if f.MimeType != "" {
		return f.MimeType
	}
	if t := mime.TypeByExtension(filepath.Ext(f.Name)); t != "" {
		return t
	}
	return http.DetectContentType(f.Data)
}
