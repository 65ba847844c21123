package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/PitokDf/express-app-useable/internal/mocks"
	"github.com/PitokDf/express-app-useable/internal/upload"
)

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return authenticated(req, uuid.New())
}

func newUploadHandler(t *testing.T, maxSize int64) (*UploadHandler, *mocks.MockFileSaver) {
	files := mocks.NewMockFileSaver(gomock.NewController(t))
	files.EXPECT().MaxSize().Return(maxSize).AnyTimes()
	return NewUploadHandler(files), files
}

func TestUpload(t *testing.T) {
	t.Parallel()

	h, files := newUploadHandler(t, 1024)
	stored := &upload.File{
		Name:         "0b6f.png",
		OriginalName: "cat.png",
		Size:         4,
		MimeType:     "image/png",
		URL:          "/uploads/0b6f.png",
	}
	files.EXPECT().Save(gomock.Any(), "cat.png", int64(4), gomock.Any()).Return(stored, nil)

	rec := serve(h.Upload, multipartRequest(t, UploadField, "cat.png", []byte("data")))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "FILE_UPLOADED", env.MessageCode)
	assert.JSONEq(t,
		`{"name":"0b6f.png","originalName":"cat.png","size":4,"mimeType":"image/png","url":"/uploads/0b6f.png"}`,
		string(env.Data))
}

func TestUpload_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		saveErr error
		message string
		code    string
	}{
		{
			name:    "wrong field",
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, "avatar", "a.png", []byte("x")) },
			message: "No file provided",
		},
		{
			name:    "disallowed type",
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, UploadField, "a.png", []byte("x")) },
			saveErr: fmt.Errorf("sniffed text/plain: %w", upload.ErrUnsupportedType),
			message: "File type is not allowed",
		},
		{
			name: "body over the limit",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, UploadField, "a.png", bytes.Repeat([]byte("x"), 2<<20))
			},
			message: "File exceeds the maximum allowed size",
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				return authenticated(jsonRequest(http.MethodPost, "/api/v1/uploads", `{}`), uuid.New())
			},
			code: "MALFORMED_REQUEST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h, files := newUploadHandler(t, 1024)
			if tc.saveErr != nil {
				files.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.saveErr)
			}

			rec := serve(h.Upload, tc.req(t))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec)
			if tc.message != "" {
				assert.Equal(t, tc.message, env.Message)
			}
			if tc.code != "" {
				assert.Equal(t, tc.code, env.MessageCode)
			}
		})
	}
}

func TestUpload_RequiresIdentity(t *testing.T) {
	t.Parallel()

	h, _ := newUploadHandler(t, 1024)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)

	rec := serve(h.Upload, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
