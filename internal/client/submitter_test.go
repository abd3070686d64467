package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDownloader struct {
	name string
	data []byte
}

func (m *memDownloader) Save(name string, data []byte) (string, error) {
	m.name, m.data = name, data
	return name, nil
}

type seenPart struct {
	field    string
	filename string
	value    string
}

func recordParts(t *testing.T, r *http.Request) []seenPart {
	t.Helper()
	mr, err := r.MultipartReader()
	require.NoError(t, err)

	var parts []seenPart
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, _ := io.ReadAll(p)
		parts = append(parts, seenPart{field: p.FormName(), filename: p.FileName(), value: string(b)})
	}
	return parts
}

func TestSubmit_Success(t *testing.T) {
	var parts []seenPart
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/convert", r.URL.Path)
		parts = recordParts(t, r)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	dl := &memDownloader{}
	s := NewSubmitter(srv.URL+"/", dl, srv.Client())
	s.SelectFiles([]File{
		{Name: "a.jpg", Data: []byte("A")},
		{Name: "b.png", Data: []byte("B")},
		{Name: "c.jpg", Data: []byte("C")},
	})
	s.SetCompressionLevel("ultra")
	s.SetFilename("report")

	out, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", out)
	assert.Equal(t, "report.pdf", dl.name)
	assert.Equal(t, []byte("%PDF-1.7 fake"), dl.data)
	assert.Equal(t, StateIdle, s.State())

	require.Len(t, parts, 5)
	for i, want := range []string{"a.jpg", "b.png", "c.jpg"} {
		assert.Equal(t, "images", parts[i].field)
		assert.Equal(t, want, parts[i].filename)
	}
	assert.Equal(t, seenPart{field: "compressionLevel", value: "ultra"}, parts[3])
	assert.Equal(t, seenPart{field: "filename", value: "report"}, parts[4])
}

func TestSubmit_Defaults(t *testing.T) {
	var parts []seenPart
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts = recordParts(t, r)
		_, _ = w.Write([]byte("pdf"))
	}))
	defer srv.Close()

	dl := &memDownloader{}
	s := NewSubmitter(srv.URL, dl, srv.Client())
	s.SelectFiles([]File{{Name: "a.jpg", Data: []byte("A")}})

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "converted.pdf", dl.name)
	require.Len(t, parts, 3)
	assert.Equal(t, "normal", parts[1].value)
	assert.Equal(t, "converted", parts[2].value)
}

func TestSubmit_NothingStaged(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, &memDownloader{}, srv.Client())
	assert.False(t, s.CanSubmit())

	// пустой дроп ничего не меняет
	s.SelectFiles(nil)

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNothingStaged)
	assert.Zero(t, hits.Load())
}

func TestSubmit_ServerErrorKeepsSelection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no images provided", http.StatusBadRequest)
	}))
	defer srv.Close()

	dl := &memDownloader{}
	s := NewSubmitter(srv.URL, dl, srv.Client())
	staged := []File{{Name: "a.jpg", Data: []byte("A")}}
	s.SelectFiles(staged)

	_, err := s.Submit(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Equal(t, "no images provided", te.Body)

	assert.Equal(t, staged, s.Files())
	assert.Nil(t, dl.data)
	assert.True(t, s.CanSubmit())
}

func TestSubmit_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewSubmitter(url, &memDownloader{}, nil)
	s.SelectFiles([]File{{Name: "a.jpg", Data: []byte("A")}})

	_, err := s.Submit(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Error(t, te.Err)
	assert.Len(t, s.Files(), 1)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmit_SingleInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte("pdf"))
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, &memDownloader{}, srv.Client())
	s.SelectFiles([]File{{Name: "a.jpg", Data: []byte("A")}})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}

	assert.Equal(t, StateSubmitting, s.State())
	assert.False(t, s.CanSubmit())
	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, s.State())
}

func TestSelectFiles_Replaces(t *testing.T) {
	s := NewSubmitter("", &memDownloader{}, nil)
	s.SelectFiles([]File{{Name: "1.jpg"}, {Name: "2.jpg"}})
	s.SelectFiles([]File{{Name: "3.jpg"}})

	files := s.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "3.jpg", files[0].Name)
}

func TestDirDownloader_Save(t *testing.T) {
	dir := t.TempDir()

	path, err := DirDownloader{Dir: dir}.Save("../escape/report.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), b)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestDirDownloader_MissingDir(t *testing.T) {
	_, err := DirDownloader{Dir: filepath.Join(t.TempDir(), "nope")}.Save("x.pdf", []byte("x"))
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(p, []byte("A"), 0o644))

	files, err := LoadFiles([]string{p})
	require.NoError(t, err)
	assert.Equal(t, []File{{Name: "a.jpg", Data: []byte("A")}}, files)

	_, err = LoadFiles([]string{filepath.Join(dir, "missing.jpg")})
	assert.Error(t, err)
}
