package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Upload is a file received with a submission.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadFromHeader adapts a multipart file header.
func UploadFromHeader(fh *multipart.FileHeader) *Upload {
	if fh == nil {
		return nil
	}
	return &Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// StoredFile describes a saved manuscript file.
type StoredFile struct {
	OriginalName string
	Path         string
	Size         int64
	MimeType     string
}

var allowedManuscriptTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// FileStore keeps manuscript files on local disk under a per-author folder.
type FileStore struct {
	root     string
	maxBytes int64
}

func NewFileStore(root string, maxBytes int64) *FileStore {
	return &FileStore{root: root, maxBytes: maxBytes}
}

// Check validates an upload without writing it.
func (fs *FileStore) Check(up *Upload) error {
	if up == nil || up.Open == nil {
		return validationError("manuscript file is required")
	}
	if up.Size <= 0 {
		return validationError("manuscript file is empty")
	}
	if fs.maxBytes > 0 && up.Size > fs.maxBytes {
		return validationError("file size exceeds %dMB limit", fs.maxBytes/(1024*1024))
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if _, ok := allowedManuscriptTypes[ext]; !ok {
		return validationError("file type %q not allowed (pdf, doc, docx)", ext)
	}
	return nil
}

// Save writes up to <root>/manuscripts/<ownerID>/<uuid><ext>.
func (fs *FileStore) Save(ownerID uint, up *Upload) (*StoredFile, error) {
	if err := fs.Check(up); err != nil {
		return nil, err
	}

	dir := filepath.Join(fs.root, "manuscripts", strconv.FormatUint(uint64(ownerID), 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	fullPath := filepath.Join(dir, uuid.NewString()+ext)

	src, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", fullPath, err)
	}
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	mimeType := strings.TrimSpace(up.ContentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = allowedManuscriptTypes[ext]
	}

	return &StoredFile{
		OriginalName: filepath.Base(up.Filename),
		Path:         fullPath,
		Size:         written,
		MimeType:     mimeType,
	}, nil
}

// Remove deletes a stored file; a missing file is not an error.
func (fs *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
