package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/storage"
)

func storeFile(t *testing.T, db *gorm.DB, store storage.Store, original, stored, body string) *models.File {
	t.Helper()
	_, err := store.Save(context.Background(), stored, strings.NewReader(body))
	require.NoError(t, err)
	f := &models.File{OriginalName: original, StoredName: stored, Size: int64(len(body)), UploadedBy: 1}
	require.NoError(t, db.Create(f).Error)
	return f
}

func reload(t *testing.T, db *gorm.DB, id uint) models.File {
	t.Helper()
	var f models.File
	require.NoError(t, db.First(&f, id).Error)
	return f
}

func TestOpenReadStreamActive(t *testing.T) {
	db, store := newTestDB(t), newTestStore(t)
	m := NewAttachmentManager(db, store)
	f := storeFile(t, db, store, "report.pdf", "abc.pdf", "pdf-bytes")

	state, err := m.State(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Active, state)

	rc, err := m.OpenReadStream(context.Background(), f)
	require.NoError(t, err)
	require.NotNil(t, rc)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(b))
	assert.False(t, reload(t, db, f.ID).IsDeleted)
}

func TestOpenReadStreamMissingBytesSelfHeals(t *testing.T) {
	db, store := newTestDB(t), newTestStore(t)
	m := NewAttachmentManager(db, store)
	ctx := context.Background()
	f := storeFile(t, db, store, "report.pdf", "gone.pdf", "x")
	require.NoError(t, store.Remove(ctx, f.StoredName))

	state, err := m.State(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, OrphanOnDiskMissing, state)

	rc, err := m.OpenReadStream(ctx, f)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.True(t, f.IsDeleted)
	assert.True(t, reload(t, db, f.ID).IsDeleted)

	state, err = m.State(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, LogicallyDeleted, state)
}

func TestRequestDeleteIsIdempotent(t *testing.T) {
	db, store := newTestDB(t), newTestStore(t)
	m := NewAttachmentManager(db, store)
	ctx := context.Background()
	f := storeFile(t, db, store, "a.txt", "a1.txt", "hello")

	require.NoError(t, m.RequestDelete(ctx, f))
	require.NoError(t, m.RequestDelete(ctx, f))
	assert.True(t, reload(t, db, f.ID).IsDeleted)

	ok, err := store.Exists(ctx, f.StoredName)
	require.NoError(t, err)
	assert.True(t, ok, "logical delete keeps the bytes")
}

func TestOnDeletedFiresOncePerFlip(t *testing.T) {
	db, store := newTestDB(t), newTestStore(t)
	m := NewAttachmentManager(db, store)
	ctx := context.Background()
	var fired []uint
	m.OnDeleted(func(_ context.Context, f *models.File) { fired = append(fired, f.ID) })

	explicit := storeFile(t, db, store, "a.txt", "a2.txt", "hello")
	require.NoError(t, m.RequestDelete(ctx, explicit))
	require.NoError(t, m.RequestDelete(ctx, explicit))
	assert.Equal(t, []uint{explicit.ID}, fired)

	healed := storeFile(t, db, store, "b.txt", "b2.txt", "hello")
	require.NoError(t, store.Remove(ctx, healed.StoredName))
	rc, err := m.OpenReadStream(ctx, healed)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.Equal(t, []uint{explicit.ID, healed.ID}, fired)

	rc, err = m.OpenReadStream(ctx, healed)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.Len(t, fired, 2)
}

func TestRequestDeleteFailurePropagates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `files`").WillReturnError(io.ErrUnexpectedEOF)
	mock.ExpectRollback()

	f := &models.File{ID: 3, StoredName: "x.txt"}
	err := NewAttachmentManager(db, nil).RequestDelete(context.Background(), f)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, f.IsDeleted)
}

func TestResolveDownload(t *testing.T) {
	db, store := newTestDB(t), newTestStore(t)
	m := NewAttachmentManager(db, store)
	ctx := context.Background()
	f := storeFile(t, db, store, "photo.png", "p1.png", "png")

	dl, err := m.ResolveDownload(ctx, "p1.png", "photo.png")
	require.NoError(t, err)
	require.Equal(t, DownloadOK, dl.Status)
	var buf bytes.Buffer
	_, err = io.Copy(&buf, dl.Stream)
	require.NoError(t, err)
	require.NoError(t, dl.Stream.Close())
	assert.Equal(t, "png", buf.String())
	assert.Equal(t, "photo.png", dl.DownloadName)
	assert.EqualValues(t, 3, dl.Size)

	dl, err = m.ResolveDownload(ctx, "p1.png", "other.png")
	require.NoError(t, err)
	assert.Equal(t, DownloadNotFound, dl.Status)
	assert.Nil(t, dl.Stream)

	require.NoError(t, store.Remove(ctx, f.StoredName))
	dl, err = m.ResolveDownload(ctx, "p1.png", "photo.png")
	require.NoError(t, err)
	assert.Equal(t, DownloadNotFound, dl.Status)
	assert.True(t, reload(t, db, f.ID).IsDeleted)
}

func TestUploadReceiver(t *testing.T) {
	store := newTestStore(t)
	u := NewUploadReceiver(store, 8)
	ctx := context.Background()

	got, err := u.ReceiveReader(ctx, `C:\Users\me\Notes.TXT`, strings.NewReader("12345"))
	require.NoError(t, err)
	assert.Equal(t, "Notes.TXT", got.OriginalName)
	assert.True(t, strings.HasSuffix(got.StoredName, ".txt"))
	assert.EqualValues(t, 5, got.Size)
	ok, err := store.Exists(ctx, got.StoredName)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, u.Discard(ctx, got))
	ok, err = store.Exists(ctx, got.StoredName)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = u.ReceiveReader(ctx, "big.bin", io.LimitReader(zeros{}, 20))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "attachment")
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
