package client

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirDownloader складывает скачанные документы в каталог.
type DirDownloader struct {
	Dir string
}

// Save пишет во временный файл и переименовывает; временный файл не переживает ошибку.
func (d DirDownloader) Save(name string, data []byte) (string, error) {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	target := filepath.Join(dir, filepath.Base(name))

	tmp, err := os.CreateTemp(dir, ".pixelforge-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename to %s: %w", target, err)
	}
	return target, nil
}

// LoadFiles читает файлы с диска для SelectFiles.
func LoadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, File{Name: filepath.Base(p), Data: b})
	}
	return files, nil
}
