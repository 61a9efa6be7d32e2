package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

var errImageMissing = errors.New("image not found")

// ImageMeta describes a stored image blob.
type ImageMeta struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// ImageStore resolves image payloads for entities and graph nodes.
// A Load miss is expected after partial imports; callers render a
// placeholder instead of failing.
type ImageStore interface {
	Save(data []byte, role string) (ImageMeta, error)
	Load(id string) ([]byte, error)
	Meta(id string) (ImageMeta, bool)
}

// DiskImageStore is a content-addressable directory of image files.
// The id is the sha256 of the bytes, so saving the same image twice
// yields the same id and a single file.
type DiskImageStore struct {
	dir   string
	metas map[string]ImageMeta
}

func NewDiskImageStore(dir string) (*DiskImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	s := &DiskImageStore{dir: dir, metas: make(map[string]ImageMeta)}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		id := strings.TrimSuffix(name, filepath.Ext(name))
		info, err := entry.Info()
		if err != nil {
			continue
		}
		s.metas[id] = ImageMeta{ID: id, Filename: name, Hash: id, Size: info.Size()}
	}
	return s, nil
}

func (s *DiskImageStore) Save(data []byte, role string) (ImageMeta, error) {
	if len(data) == 0 {
		return ImageMeta{}, fmt.Errorf("empty image data")
	}
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])
	if meta, ok := s.metas[id]; ok {
		// Same bytes already stored; never load an image twice.
		return meta, nil
	}

	// The role is advisory; content addressing ignores it so the same
	// bytes used as control and reference share one file.
	name := id + sniffImageExt(data)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return ImageMeta{}, fmt.Errorf("write image: %w", err)
	}

	meta := ImageMeta{ID: id, Filename: name, Hash: id, Size: int64(len(data))}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
	}
	s.metas[id] = meta
	return meta, nil
}

func (s *DiskImageStore) Load(id string) ([]byte, error) {
	meta, ok := s.metas[id]
	if !ok {
		return nil, errImageMissing
	}
	data, err := os.ReadFile(filepath.Join(s.dir, meta.Filename))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", shortID(id), err)
	}
	return data, nil
}

func (s *DiskImageStore) Meta(id string) (ImageMeta, bool) {
	meta, ok := s.metas[id]
	return meta, ok
}

func sniffImageExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return ".png"
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return ".jpg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ".gif"
	}
	return ".bin"
}

// parseDataURI extracts the raw bytes of a base64 data URI, used for
// paste and drop payloads that arrive pre-encoded.
func parseDataURI(uri string) ([]byte, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, false
	}
	idx := strings.Index(uri, ";base64,")
	if idx < 0 {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(uri[idx+len(";base64,"):])
	if err != nil {
		return nil, false
	}
	return data, true
}
