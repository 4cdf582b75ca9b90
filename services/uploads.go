package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cppla/threadbbs/storage"
)

// ReceivedFile describes bytes already written to the store for one upload.
type ReceivedFile struct {
	OriginalName string
	StoredName   string
	Size         int64
}

// UploadReceiver writes an incoming multipart file to the store under a fresh
// server-assigned name.
type UploadReceiver struct {
	store    storage.Store
	maxBytes int64
}

// NewUploadReceiver creates an UploadReceiver accepting files up to maxBytes.
func NewUploadReceiver(store storage.Store, maxBytes int64) *UploadReceiver {
	return &UploadReceiver{store: store, maxBytes: maxBytes}
}

// Receive stores the upload. Oversized files are rejected with a ValidationError
// and leave nothing behind.
func (u *UploadReceiver) Receive(ctx context.Context, header *multipart.FileHeader) (*ReceivedFile, error) {
	if header.Size > u.maxBytes {
		return nil, tooLarge(u.maxBytes)
	}
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	return u.ReceiveReader(ctx, header.Filename, src)
}

// ReceiveReader stores r under a new storage name, enforcing the size limit while streaming.
func (u *UploadReceiver) ReceiveReader(ctx context.Context, originalName string, r io.Reader) (*ReceivedFile, error) {
	original := displayName(originalName)
	stored := uuid.New().String() + strings.ToLower(filepath.Ext(original))

	body := r
	if _, seekable := r.(io.ReadSeeker); !seekable {
		body = &io.LimitedReader{R: r, N: u.maxBytes + 1}
	}
	written, err := u.store.Save(ctx, stored, body)
	if err != nil {
		return nil, err
	}
	if written > u.maxBytes {
		_ = u.store.Remove(ctx, stored)
		return nil, tooLarge(u.maxBytes)
	}
	return &ReceivedFile{OriginalName: original, StoredName: stored, Size: written}, nil
}

// Discard removes bytes of an upload that was never attached to a record.
func (u *UploadReceiver) Discard(ctx context.Context, f *ReceivedFile) error {
	if f == nil {
		return nil
	}
	return u.store.Remove(ctx, f.StoredName)
}

func tooLarge(maxBytes int64) error {
	return &ValidationError{Fields: map[string]string{
		"attachment": fmt.Sprintf("file size exceeds %dMB", maxBytes>>20),
	}}
}

// displayName keeps only the base name a client sent.
func displayName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
