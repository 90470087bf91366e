package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctalk/backend/internal/adapter"
	"doctalk/backend/internal/store"
)

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func newUploadHandler(st *store.Store, e Embedder) *Handler {
	return NewHandler(NewService(st, e, 2, 0), 50<<20, time.Second)
}

func TestUpload(t *testing.T) {
	t.Run("Ingests And Reports Chunk Count", func(t *testing.T) {
		st := store.New(nil)
		h := newUploadHandler(st, &fixedEmbedder{dim: 3})

		body, contentType := multipartUpload(t, "greek.txt", []byte("alpha beta gamma delta"))
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		h.Upload(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]int
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp["chunks_added"])
		assert.Equal(t, 2, st.Count())
	})

	t.Run("Rejects Unsupported Extension", func(t *testing.T) {
		h := newUploadHandler(store.New(nil), &fixedEmbedder{dim: 3})

		body, contentType := multipartUpload(t, "malware.exe", []byte("nope"))
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		h.Upload(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Rejects Missing File Field", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("name", "no file"))
		require.NoError(t, mw.Close())

		h := newUploadHandler(store.New(nil), &fixedEmbedder{dim: 3})
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		h.Upload(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid UTF8 Maps To Decode Failure", func(t *testing.T) {
		h := newUploadHandler(store.New(nil), &fixedEmbedder{dim: 3})

		body, contentType := multipartUpload(t, "binary.txt", []byte{0xff, 0xfe, 0x01})
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		h.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		errObj := resp["error"].(map[string]interface{})
		assert.Equal(t, "DECODE_FAILURE", errObj["code"])
	})

	t.Run("Dimension Mismatch Maps To Internal Error", func(t *testing.T) {
		st := store.New(nil)
		first := newUploadHandler(st, &fixedEmbedder{dim: 3})
		body, contentType := multipartUpload(t, "a.txt", []byte("one two"))
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		first.Upload(httptest.NewRecorder(), req)
		require.Equal(t, 1, st.Count())

		second := newUploadHandler(st, &fixedEmbedder{dim: 5})
		body, contentType = multipartUpload(t, "b.txt", []byte("three four"))
		req = httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		second.Upload(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		errObj := resp["error"].(map[string]interface{})
		assert.Equal(t, "DIMENSION_MISMATCH", errObj["code"])
		// existing state survives the failed request
		assert.Equal(t, 1, st.Count())
	})

	t.Run("Gateway Failure Maps To Bad Gateway", func(t *testing.T) {
		h := newUploadHandler(store.New(nil), &gatewayDownEmbedder{})

		body, contentType := multipartUpload(t, "a.txt", []byte("one two"))
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		h.Upload(w, req)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

type gatewayDownEmbedder struct{}

func (e *gatewayDownEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: connection refused", adapter.ErrGatewayUnavailable)
}
