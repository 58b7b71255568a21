package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/magnogrupo/portal/internal/ctxkeys"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/upload"
	"github.com/magnogrupo/portal/internal/wizard"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}}
}

func (f *fakeUploader) Save(_ context.Context, path string, file io.Reader) error {
	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = content
	return nil
}

func (f *fakeUploader) URL(path string) string {
	return "https://cdn.test/" + path
}

func newTestHandler(store *fakeUploader) *submissionHandler {
	return &submissionHandler{
		staging: upload.NewStaging(),
		media:   store,
	}
}

func guestRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(ctxkeys.WithWizardSession(req.Context(), "sess-1"))
}

func ownerRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(ctxkeys.WithUser(req.Context(), &model.User{ID: "owner-1", Email: "owner@example.com"}))
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func multipartBody(t *testing.T, form *model.FormData, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if form != nil {
		formJSON, err := json.Marshal(form)
		if err != nil {
			t.Fatal(err)
		}
		if err := mw.WriteField("form", string(formJSON)); err != nil {
			t.Fatal(err)
		}
	}

	fw, err := mw.CreateFormFile("files", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestValidateStepRejectsIncompleteContact(t *testing.T) {
	h := newTestHandler(newFakeUploader())

	body, _ := json.Marshal(validateStepRequest{
		Step: wizard.StepContact,
		Form: model.FormData{ContactFirstNames: "Jane"},
	})
	req := guestRequest(http.MethodPost, "/api/submissions/validate-step", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ValidateStep(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Valid {
		t.Fatal("expected valid=false")
	}
	if resp.Message == "" {
		t.Fatal("expected a validation message")
	}
}

func TestValidateStepAdvances(t *testing.T) {
	h := newTestHandler(newFakeUploader())

	body, _ := json.Marshal(validateStepRequest{
		Step: wizard.StepPricing,
		Form: model.FormData{Price: "4500000"},
	})
	req := ownerRequest(http.MethodPost, "/api/submissions/validate-step", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ValidateStep(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Valid    bool `json:"valid"`
		NextStep int  `json:"next_step"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Valid || resp.NextStep != wizard.StepDocuments {
		t.Fatalf("got valid=%v next_step=%d, want valid=true next_step=%d", resp.Valid, resp.NextStep, wizard.StepDocuments)
	}
}

func TestValidateStepUnknownStep(t *testing.T) {
	h := newTestHandler(newFakeUploader())

	body, _ := json.Marshal(validateStepRequest{Step: 42})
	req := ownerRequest(http.MethodPost, "/api/submissions/validate-step", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ValidateStep(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadFilesUnknownField(t *testing.T) {
	h := newTestHandler(newFakeUploader())

	body, contentType := multipartBody(t, &model.FormData{}, "photo.png", pngHeader)
	req := guestRequest(http.MethodPost, "/api/submissions/upload/floor_plan", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("field", "floor_plan")
	rec := httptest.NewRecorder()

	h.UploadFiles(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadFilesRejectsWrongType(t *testing.T) {
	h := newTestHandler(newFakeUploader())

	body, contentType := multipartBody(t, &model.FormData{}, "notes.txt", []byte("plain text, not a photo"))
	req := guestRequest(http.MethodPost, "/api/submissions/upload/gallery_images", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("field", "gallery_images")
	rec := httptest.NewRecorder()

	h.UploadFiles(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadFilesGuestStaysPending(t *testing.T) {
	store := newFakeUploader()
	h := newTestHandler(store)

	body, contentType := multipartBody(t, &model.FormData{}, "fachada.png", pngHeader)
	req := guestRequest(http.MethodPost, "/api/submissions/upload/gallery_images", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("field", "gallery_images")
	rec := httptest.NewRecorder()

	h.UploadFiles(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Form   model.FormData `json:"form"`
		Notice string         `json:"notice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Form.GalleryURLs) != 1 {
		t.Fatalf("gallery has %d entries, want 1", len(resp.Form.GalleryURLs))
	}
	if !upload.IsPending(resp.Form.GalleryURLs[0]) {
		t.Fatalf("guest upload produced a real URL: %s", resp.Form.GalleryURLs[0])
	}
	if len(store.objects) != 0 {
		t.Fatalf("guest upload hit storage: %d objects", len(store.objects))
	}
}

func TestUploadFilesOwnerUploadsImmediately(t *testing.T) {
	store := newFakeUploader()
	h := newTestHandler(store)

	body, contentType := multipartBody(t, &model.FormData{}, "fachada.png", pngHeader)
	req := ownerRequest(http.MethodPost, "/api/submissions/upload/main_image", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("field", "main_image")
	rec := httptest.NewRecorder()

	h.UploadFiles(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Form model.FormData `json:"form"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Form.MainImageURL, "properties/owners/owner-1/main/") {
		t.Fatalf("main image URL not namespaced to owner: %s", resp.Form.MainImageURL)
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected 1 stored object, got %d", len(store.objects))
	}
}

func TestUploadFilesNoFiles(t *testing.T) {
	h := newTestHandler(newFakeUploader())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("form", "{}"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := guestRequest(http.MethodPost, "/api/submissions/upload/gallery_images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetPathValue("field", "gallery_images")
	rec := httptest.NewRecorder()

	h.UploadFiles(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
