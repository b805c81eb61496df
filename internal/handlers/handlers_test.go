package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/snapcard/internal/card"
	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/models"
	"github.com/lehigh-university-libraries/snapcard/internal/pipeline"
)

type fakeRunner struct {
	outDir string
	err    error
	paths  []string
}

func (f *fakeRunner) Run(ctx context.Context, imagePath string) (*pipeline.Result, error) {
	f.paths = append(f.paths, imagePath)
	if f.err != nil {
		return nil, f.err
	}
	cardPath := filepath.Join(f.outDir, "card.html")
	if err := os.WriteFile(cardPath, []byte("<html>card</html>"), 0644); err != nil {
		return nil, err
	}
	return &pipeline.Result{
		ImageName: filepath.Base(imagePath),
		Record: &card.Record{
			Meta: card.Meta{ContentType: "tutorial", Confidence: 80},
			Card: card.Card{
				Tag:      "Go",
				Title:    "Bounded worker pools",
				ReadTime: "2 min",
				Sections: card.Sections{card.Highlight{Content: "Use errgroup.SetLimit"}},
			},
		},
		CardPath: cardPath,
	}, nil
}

func newTestHandler(t *testing.T, runErr error) (*Handler, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{outDir: t.TempDir(), err: runErr}
	return New(runner, filepath.Join(t.TempDir(), "uploads")), runner
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.CardSession {
	t.Helper()
	var s models.CardSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func TestHandleCardsUpload(t *testing.T) {
	h, runner := newTestHandler(t, nil)

	body, contentType := multipartBody(t, "file", "thread.png", []byte("fake png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/cards", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.HandleCards(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeSession(t, rec)
	assert.True(t, strings.HasPrefix(session.ID, "thread_"))
	assert.Equal(t, models.StatusDone, session.Status)
	assert.Equal(t, "upload", session.Source)
	assert.Equal(t, "/cards/"+session.ID, session.CardURL)
	require.NotNil(t, session.Record)
	assert.Equal(t, "Bounded worker pools", session.Record.Card.Title)

	require.Len(t, runner.paths, 1)
	assert.Equal(t, ".png", filepath.Ext(runner.paths[0]))
	saved, err := os.ReadFile(runner.paths[0])
	require.NoError(t, err)
	assert.Equal(t, "fake png bytes", string(saved))

	// The card page serves the rendered document.
	page := httptest.NewRecorder()
	h.HandleCardPage(page, httptest.NewRequest(http.MethodGet, "/cards/"+session.ID, nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "<html>card</html>")
	assert.Contains(t, page.Header().Get("Content-Type"), "text/html")
}

func TestHandleCardsRejectsUnsupportedFile(t *testing.T) {
	h, runner := newTestHandler(t, nil)

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/cards", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.HandleCards(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.paths)
}

func TestHandleCardsFromURL(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("remote png"))
	}))
	defer images.Close()

	h, runner := newTestHandler(t, nil)
	payload := `{"image_url":"` + images.URL + `/shots/remote.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.HandleCards(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeSession(t, rec)
	assert.Equal(t, "url", session.Source)
	assert.Equal(t, "remote.png", session.ImageName)
	require.Len(t, runner.paths, 1)
}

func TestHandleCardsURLValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{`},
		{"missing url", `{}`},
		{"not http", `{"image_url":"file:///etc/passwd"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, runner := newTestHandler(t, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.HandleCards(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, runner.paths)
		})
	}
}

func TestHandleCardsFailureStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantStage string
		wantKind  string
	}{
		{
			name:      "malformed response",
			err:       &pipeline.Failure{Stage: pipeline.StageExtract, Err: domain.MalformedResponseError("missing card", "not json", card.ErrMissingCard)},
			wantCode:  http.StatusUnprocessableEntity,
			wantStage: "extract",
			wantKind:  "malformed_response",
		},
		{
			name:      "backend",
			err:       &pipeline.Failure{Stage: pipeline.StageAnalyze, Err: domain.BackendError("analysis failed", context.DeadlineExceeded)},
			wantCode:  http.StatusBadGateway,
			wantStage: "analyze",
			wantKind:  "backend",
		},
		{
			name:      "input",
			err:       &pipeline.Failure{Stage: pipeline.StageInput, Err: domain.InputError("image not readable", os.ErrNotExist)},
			wantCode:  http.StatusBadRequest,
			wantStage: "input",
			wantKind:  "input",
		},
		{
			name:      "write",
			err:       &pipeline.Failure{Stage: pipeline.StageWrite, Err: os.ErrPermission},
			wantCode:  http.StatusInternalServerError,
			wantStage: "write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, tt.err)

			body, contentType := multipartBody(t, "file", "shot.jpg", []byte("jpeg"))
			req := httptest.NewRequest(http.MethodPost, "/api/cards", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			h.HandleCards(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			session := decodeSession(t, rec)
			assert.Equal(t, models.StatusFailed, session.Status)
			assert.Equal(t, tt.wantStage, session.FailedStage)
			assert.Equal(t, tt.wantKind, session.ErrorKind)
			assert.Empty(t, session.CardURL)

			// Failed sessions are listed but have no card page.
			stored, ok := h.store.Get(session.ID)
			require.True(t, ok)
			page := httptest.NewRecorder()
			h.HandleCardPage(page, httptest.NewRequest(http.MethodGet, "/cards/"+stored.ID, nil))
			assert.Equal(t, http.StatusNotFound, page.Code)
		})
	}
}

func TestMalformedFailureKeepsRawResponse(t *testing.T) {
	err := &pipeline.Failure{Stage: pipeline.StageExtract, Err: domain.MalformedResponseError("invalid JSON", "Sorry, I can't", nil)}
	h, _ := newTestHandler(t, err)

	body, contentType := multipartBody(t, "file", "shot.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/cards", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.HandleCards(rec, req)

	session := decodeSession(t, rec)
	assert.Equal(t, "Sorry, I can't", session.RawResponse)
}

func TestHandleCardDetail(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	h.store.Set("abc", &models.CardSession{ID: "abc", Status: models.StatusDone})

	rec := httptest.NewRecorder()
	h.HandleCardDetail(rec, httptest.NewRequest(http.MethodGet, "/api/cards/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", decodeSession(t, rec).ID)

	rec = httptest.NewRecorder()
	h.HandleCardDetail(rec, httptest.NewRequest(http.MethodGet, "/api/cards/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleCardDetail(rec, httptest.NewRequest(http.MethodDelete, "/api/cards/abc", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := h.store.Get("abc")
	assert.False(t, ok)
}

func TestHandleCardsList(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	h.store.Set("one", &models.CardSession{ID: "one"})

	rec := httptest.NewRecorder()
	h.HandleCards(rec, httptest.NewRequest(http.MethodGet, "/api/cards", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []models.CardSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "one", sessions[0].ID)

	rec = httptest.NewRecorder()
	h.HandleCards(rec, httptest.NewRequest(http.MethodPut, "/api/cards", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleIndex(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	h.store.Set("ok", &models.CardSession{
		ID:        "ok",
		ImageName: "ok.png",
		Status:    models.StatusDone,
		CardURL:   "/cards/ok",
		Record:    &card.Record{Card: card.Card{Title: "A <b> title"}},
	})
	h.store.Set("bad", &models.CardSession{ID: "bad", ImageName: "bad.png", Status: models.StatusFailed, FailedStage: "extract", Error: "boom"})

	rec := httptest.NewRecorder()
	h.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<a href="/cards/ok">A &lt;b&gt; title</a>`)
	assert.Contains(t, body, "failed (extract)")

	rec = httptest.NewRecorder()
	h.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
