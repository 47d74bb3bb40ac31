package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/preview"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	img.Set(3, 3, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	notFound := func(mStore *storeMocks.MockStorage) {
		mStore.On("Stat", ctx, mock.Anything).Return(storage.ObjectInfo{}, storage.ErrObjectNotFound)
	}
	echoKey := func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		return storage.ObjectInfo{Key: key, Size: opt.Size}
	}

	tests := []struct {
		name       string
		file       UploadFile
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantReason string
	}{
		{
			name: "happy path",
			file: uploadFile("test.txt", []byte("hello world")),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				notFound(mStore)
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "test_") && strings.HasSuffix(key, ".txt")
				}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
					return opt.Size == 11 &&
						opt.ContentType == "text/plain" &&
						opt.Metadata["original-filename"] == "test.txt" &&
						strings.HasPrefix(opt.Metadata["detected-type"], "text/plain")
				})).Return(echoKey, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(rec *model.DocumentRecord) bool {
					return rec.DisplayName == "test.txt" && rec.Extension == ".txt" && rec.UploadedAt.Equal(testNow)
				})).Return(nil)
			},
		},
		{
			name: "empty file",
			file: uploadFile("empty.pdf", nil),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
			},
			wantReason: "file is empty",
		},
		{
			name: "unreadable file",
			file: UploadFile{Filename: "x.txt", Open: func() (io.ReadCloser, error) { return nil, errors.New("gone") }},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
			},
			wantReason: "open upload: gone",
		},
		{
			name: "storage error",
			file: uploadFile("test.txt", []byte("hello")),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				notFound(mStore)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantReason: "upload to storage: storage fail",
		},
		{
			name: "repository error with successful rollback",
			file: uploadFile("test.txt", []byte("hello")),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				notFound(mStore)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(echoKey, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
			},
			wantReason: "db save failed: db fail",
		},
		{
			name: "repository error with failed rollback",
			file: uploadFile("test.txt", []byte("hello")),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				notFound(mStore)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(echoKey, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
			},
			wantReason: "rollback delete failed: delete fail",
		},
		{
			name: "id check error",
			file: uploadFile("test.txt", []byte("hello")),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Stat", ctx, mock.Anything).Return(storage.ObjectInfo{}, errors.New("minio down"))
			},
			wantReason: "storage unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo, DocumentServiceConfig{Now: fixedClock})

			tt.setupMocks(mStore, mRepo)

			res, err := svc.Upload(ctx, []UploadFile{tt.file})
			require.NoError(t, err)

			if tt.wantReason != "" {
				assert.Empty(t, res.Uploaded)
				require.Len(t, res.Failed, 1)
				assert.Equal(t, tt.file.Filename, res.Failed[0].Filename)
				assert.Contains(t, res.Failed[0].Reason, tt.wantReason)
			} else {
				assert.Empty(t, res.Failed)
				require.Len(t, res.Uploaded, 1)
				assert.Equal(t, "test.txt", res.Uploaded[0].DisplayName)
				assert.Equal(t, int64(11), res.Uploaded[0].Size)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	svc := NewDocumentService(new(storeMocks.MockStorage), new(repoMocks.MockDocumentRepository), DocumentServiceConfig{})

	_, err := svc.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDocumentService_Upload_TooLarge(t *testing.T) {
	st := newMemStore(t)
	svc := NewDocumentService(st, permissiveRepo(), DocumentServiceConfig{MaxUploadBytes: 4, Now: fixedClock})

	res, err := svc.Upload(context.Background(), []UploadFile{uploadFile("big.txt", []byte("12345"))})
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Reason, "exceeds 4 B")

	objs, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestDocumentService_Upload_PartialBatchAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(t)
	mRepo := permissiveRepo()
	mRepo.On("Create", ctx, mock.Anything).Return(nil)
	mRepo.On("IncrementDownloadCount", ctx, mock.Anything).Return(nil)
	svc := NewDocumentService(st, mRepo, DocumentServiceConfig{Now: fixedClock})

	first := []byte("first file")
	third := pngBytes(t)
	res, err := svc.Upload(ctx, []UploadFile{
		uploadFile("first.txt", first),
		uploadFile("second.txt", []byte{}),
		uploadFile("third.png", third),
	})
	require.NoError(t, err)

	require.Len(t, res.Uploaded, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "second.txt", res.Failed[0].Filename)

	for i, want := range [][]byte{first, third} {
		got, err := svc.Download(ctx, res.Uploaded[i].ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.Data)
	}

	objs, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, objs, 2)
	mRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestDocumentService_Upload_IDCollision(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(t)
	mRepo := permissiveRepo()
	mRepo.On("Create", ctx, mock.Anything).Return(nil)
	svc := NewDocumentService(st, mRepo, DocumentServiceConfig{Now: fixedClock})

	res, err := svc.Upload(ctx, []UploadFile{
		uploadFile("same name.txt", []byte("one")),
		uploadFile("same name.txt", []byte("two")),
	})
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 2)

	nanos := testNow.UnixNano()
	assert.Equal(t, "same_name_"+itoa(nanos)+".txt", res.Uploaded[0].ID)
	assert.Equal(t, "same_name_"+itoa(nanos+1)+".txt", res.Uploaded[1].ID)
	assert.Equal(t, "same name.txt", res.Uploaded[1].DisplayName)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(t)
	putBlob(t, st, "a_1.txt", []byte("alpha notes"))
	putBlob(t, st, "b_2.png", pngBytes(t))
	putBlob(t, st, "c_3.xlsx", []byte("PK fake sheet"))

	mRepo := new(repoMocks.MockDocumentRepository)
	mRepo.On("FindByID", mock.Anything, "a_1.txt").
		Return(&model.DocumentRecord{ID: "a_1.txt", DisplayName: "Alpha.txt", Extension: ".txt", UploadedAt: testNow}, nil)
	mRepo.On("FindByID", mock.Anything, "b_2.png").Return(nil, sql.ErrNoRows)
	mRepo.On("FindByID", mock.Anything, "c_3.xlsx").Return(nil, errors.New("db fail"))
	mRepo.On("GetDownloadCount", mock.Anything, "a_1.txt").Return(int64(4), nil)
	mRepo.On("GetDownloadCount", mock.Anything, mock.Anything).Return(int64(0), nil)

	svc := NewDocumentService(st, mRepo, DocumentServiceConfig{
		Previews:    preview.NewGenerator(preview.Options{}),
		Concurrency: 2,
	})

	res, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 3)

	alpha, bravo, charlie := res.Items[0], res.Items[1], res.Items[2]

	assert.Equal(t, "a_1.txt", alpha.ID)
	assert.Equal(t, "Alpha.txt", alpha.DisplayName)
	assert.Equal(t, int64(4), alpha.DownloadCount)
	assert.Equal(t, "text/plain", alpha.ContentType)
	require.NotNil(t, alpha.Preview)
	assert.Equal(t, "png", alpha.Preview.Format)

	assert.Equal(t, "b.png", bravo.DisplayName)
	require.NotNil(t, bravo.Preview)
	assert.Equal(t, preview.DefaultSize, bravo.Preview.Width)
	assert.Equal(t, preview.DefaultSize, bravo.Preview.Height)
	assert.NotEmpty(t, bravo.Preview.Data)

	assert.Equal(t, "c.xlsx", charlie.DisplayName)
	assert.Equal(t, "excel-icon.png", charlie.Icon)
	assert.Nil(t, charlie.Preview)
}

func TestDocumentService_List_Window(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(t)
	for _, id := range []string{"a_1.bin", "b_2.bin", "c_3.bin"} {
		putBlob(t, st, id, []byte(id))
	}
	svc := NewDocumentService(st, permissiveRepo(), DocumentServiceConfig{})

	tests := []struct {
		limit, offset int
		want          []string
	}{
		{1, 1, []string{"b_2.bin"}},
		{0, 2, []string{"c_3.bin"}},
		{5, -3, []string{"a_1.bin", "b_2.bin", "c_3.bin"}},
		{2, 10, []string{}},
	}
	for _, tt := range tests {
		res, err := svc.List(ctx, tt.limit, tt.offset)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)

		ids := []string{}
		for _, d := range res.Items {
			ids = append(ids, d.ID)
			assert.Equal(t, "application/octet-stream", d.ContentType)
			assert.Equal(t, "default-icon.png", d.Icon)
		}
		assert.Equal(t, tt.want, ids)
	}
}

func TestDocumentService_List_StorageError(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mStore.On("List", mock.Anything).Return(nil, errors.New("bucket gone"))
	svc := NewDocumentService(mStore, new(repoMocks.MockDocumentRepository), DocumentServiceConfig{})

	_, err := svc.List(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(t)
	putBlob(t, st, "photo_1.png", pngBytes(t))

	svc := NewDocumentService(st, permissiveRepo(), DocumentServiceConfig{
		Previews: preview.NewGenerator(preview.Options{Size: 20}),
	})

	doc, err := svc.Get(ctx, "photo_1.png")
	require.NoError(t, err)
	assert.Equal(t, "photo_1.png", doc.ID)
	assert.Equal(t, "photo.png", doc.DisplayName)
	assert.Equal(t, "image/png", doc.ContentType)
	require.NotNil(t, doc.Preview)
	assert.Equal(t, 20, doc.Preview.Width)

	_, err = svc.Get(ctx, "missing_1.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentService_Get_StorageError(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mStore.On("Stat", mock.Anything, "x_1.pdf").Return(storage.ObjectInfo{}, errors.New("timeout"))
	svc := NewDocumentService(mStore, new(repoMocks.MockDocumentRepository), DocumentServiceConfig{})

	_, err := svc.Get(context.Background(), "x_1.pdf")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(t)
	putBlob(t, st, "report_7.pdf", []byte("%PDF-1.4 body"))

	t.Run("counts the download", func(t *testing.T) {
		mRepo := permissiveRepo()
		mRepo.On("IncrementDownloadCount", ctx, "report_7.pdf").Return(nil).Once()
		svc := NewDocumentService(st, mRepo, DocumentServiceConfig{})

		res, err := svc.Download(ctx, "report_7.pdf")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", res.ContentType)
		assert.Equal(t, []byte("%PDF-1.4 body"), res.Data)
		assert.Equal(t, "report.pdf", res.Document.DisplayName)
		mRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := permissiveRepo()
		svc := NewDocumentService(st, mRepo, DocumentServiceConfig{})

		_, err := svc.Download(ctx, "nope_1.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
		mRepo.AssertNotCalled(t, "IncrementDownloadCount", mock.Anything, mock.Anything)
	})

	t.Run("counter unavailable", func(t *testing.T) {
		mRepo := permissiveRepo()
		mRepo.On("IncrementDownloadCount", ctx, "report_7.pdf").Return(errors.New("db fail"))
		svc := NewDocumentService(st, mRepo, DocumentServiceConfig{})

		_, err := svc.Download(ctx, "report_7.pdf")
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}
