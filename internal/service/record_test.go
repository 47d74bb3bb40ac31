package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"docvault/internal/logging"
	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
)

func TestDisplayNameFromID(t *testing.T) {
	tests := map[string]string{
		"report_1760000000000000000.pdf": "report.pdf",
		"my_notes_42.txt":                "my_notes.txt",
		"plain.docx":                     "plain.docx",
		"_123.png":                       "_123.png",
		"noext_99":                       "noext",
	}
	for id, want := range tests {
		assert.Equal(t, want, displayNameFromID(id), id)
	}
}

func TestSafeStemAndExt(t *testing.T) {
	assert.Equal(t, "Quarterly_Report_2024", safeStem("Quarterly Report (2024).pdf"))
	assert.Equal(t, "document", safeStem("....pdf"))
	assert.Equal(t, "document", safeStem("日本.txt"))
	assert.Equal(t, ".pdf", safeExt("a.pdf"))
	assert.Equal(t, "", safeExt("a.p df"))
	assert.Equal(t, "", safeExt("README"))
}

func TestResolveRecord(t *testing.T) {
	ctx := context.Background()
	info := storage.ObjectInfo{Key: "memo_5.docx", LastModified: testNow}

	t.Run("persisted row", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "memo_5.docx").
			Return(&model.DocumentRecord{ID: "memo_5.docx", DisplayName: "Memo.docx", Extension: ".docx"}, nil)

		rec := resolveRecord(ctx, mRepo, logging.Nop(), info)
		assert.Equal(t, "Memo.docx", rec.DisplayName)
		mRepo.AssertExpectations(t)
	})

	for name, repoErr := range map[string]error{"missing row": sql.ErrNoRows, "lookup failure": errors.New("db down")} {
		t.Run(name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			mRepo.On("FindByID", ctx, "memo_5.docx").Return(nil, repoErr)

			rec := resolveRecord(ctx, mRepo, logging.Nop(), info)
			assert.Equal(t, "memo.docx", rec.DisplayName)
			assert.Equal(t, ".docx", rec.Extension)
			assert.Equal(t, testNow, rec.UploadedAt)
		})
	}
}
