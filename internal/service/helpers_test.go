package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
)

var testNow = time.Date(2025, 10, 9, 8, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newMemStore(t *testing.T) storage.Storage {
	t.Helper()
	st, err := storage.NewFS(afero.NewMemMapFs(), "DocumentVault", "documents")
	require.NoError(t, err)
	return st
}

func putBlob(t *testing.T, st storage.Storage, id string, data []byte) {
	t.Helper()
	_, err := st.Put(context.Background(), id, bytes.NewReader(data), storage.PutObjectOptions{Size: int64(len(data))})
	require.NoError(t, err)
}

func uploadFile(name string, data []byte) UploadFile {
	return UploadFile{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// permissiveRepo answers metadata reads as if no rows exist.
func permissiveRepo() *repoMocks.MockDocumentRepository {
	mRepo := new(repoMocks.MockDocumentRepository)
	mRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Maybe()
	mRepo.On("GetDownloadCount", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()
	return mRepo
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
