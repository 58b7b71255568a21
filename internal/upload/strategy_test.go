package upload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/magnogrupo/portal/internal/model"
)

// fakeUploader records saved objects in memory.
type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string // substring of path that triggers an error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (f *fakeUploader) Save(_ context.Context, path string, r io.Reader) error {
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return fmt.Errorf("simulated storage failure for %s", path)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
	return nil
}

func (f *fakeUploader) URL(path string) string {
	return "https://media.example.com/" + path
}

func galleryURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://media.example.com/properties/owners/u1/gallery/%d.jpg", i)
	}
	return urls
}

func someFiles(n int) []File {
	files := make([]File, n)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("photo-%d.jpg", i), Content: []byte{0xff, 0xd8, byte(i)}}
	}
	return files
}

func TestImmediateGalleryCapAcceptsOnlyRemainingSlots(t *testing.T) {
	store := newFakeUploader()
	strategy := NewImmediateStrategy(store, "u1")

	form := &model.FormData{GalleryURLs: galleryURLs(28)}
	notice, err := strategy.HandleFile(context.Background(), form, FieldGallery, someFiles(35))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if len(form.GalleryURLs) != 30 {
		t.Fatalf("gallery count = %d, want 30", len(form.GalleryURLs))
	}
	if len(store.objects) != 2 {
		t.Fatalf("uploaded objects = %d, want 2", len(store.objects))
	}
	if !strings.Contains(notice, "maximum 30") {
		t.Fatalf("notice %q should mention the cap", notice)
	}
}

func TestImmediateGalleryFullReturnsNoticeOnly(t *testing.T) {
	store := newFakeUploader()
	strategy := NewImmediateStrategy(store, "u1")

	form := &model.FormData{GalleryURLs: galleryURLs(30)}
	notice, err := strategy.HandleFile(context.Background(), form, FieldGallery, someFiles(1))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if notice == "" {
		t.Fatal("expected a max-reached notice")
	}
	if len(form.GalleryURLs) != 30 || len(store.objects) != 0 {
		t.Fatalf("full gallery must not change: %d urls, %d objects", len(form.GalleryURLs), len(store.objects))
	}
}

func TestImmediateMainImageUploadsUnderOwnerNamespace(t *testing.T) {
	store := newFakeUploader()
	strategy := NewImmediateStrategy(store, "owner-9")

	form := &model.FormData{}
	_, err := strategy.HandleFile(context.Background(), form, FieldMainImage, someFiles(1))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if form.MainImageURL == "" {
		t.Fatal("main image URL not set")
	}
	for path := range store.objects {
		if !strings.HasPrefix(path, "properties/owners/owner-9/main/") {
			t.Fatalf("path %q not namespaced under owner", path)
		}
	}
}

func TestDeferredStagesFilesAndRecordsPendingURLs(t *testing.T) {
	staging := NewStaging()
	store := newFakeUploader()
	strategy := NewDeferredStrategy(staging, store, "sess-1")

	form := &model.FormData{}
	_, err := strategy.HandleFile(context.Background(), form, FieldIdentification, someFiles(2))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if len(form.IDURLs) != 2 {
		t.Fatalf("id urls = %d, want 2", len(form.IDURLs))
	}
	for _, u := range form.IDURLs {
		if !IsPending(u) {
			t.Fatalf("guest URL %q should be pending", u)
		}
	}
	if len(store.objects) != 0 {
		t.Fatalf("guest files must not hit storage before flush, got %d", len(store.objects))
	}
}

func TestDeferredIdentificationCap(t *testing.T) {
	staging := NewStaging()
	strategy := NewDeferredStrategy(staging, newFakeUploader(), "sess-1")

	form := &model.FormData{}
	notice, err := strategy.HandleFile(context.Background(), form, FieldIdentification, someFiles(5))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	if len(form.IDURLs) != 2 {
		t.Fatalf("id urls = %d, want 2", len(form.IDURLs))
	}
	if !strings.Contains(notice, "maximum 2") {
		t.Fatalf("notice %q should mention the identification cap", notice)
	}
	if got := len(staging.Files("sess-1")[FieldIdentification]); got != 2 {
		t.Fatalf("staged files = %d, want 2", got)
	}
}

func TestFlushUploadsStagedFilesAndPreservesRealURLs(t *testing.T) {
	staging := NewStaging()
	store := newFakeUploader()
	strategy := NewDeferredStrategy(staging, store, "sess-1")

	// Resumed draft: one gallery photo already uploaded for real.
	form := &model.FormData{
		GalleryURLs: []string{"https://media.example.com/properties/owners/u1/gallery/old.jpg"},
	}
	_, err := strategy.HandleFile(context.Background(), form, FieldGallery, someFiles(3))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}
	_, err = strategy.HandleFile(context.Background(), form, FieldMainImage, someFiles(1))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}

	err = strategy.Flush(context.Background(), "new-user", form)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(form.GalleryURLs) != 4 {
		t.Fatalf("gallery urls = %d, want 4", len(form.GalleryURLs))
	}
	if form.GalleryURLs[0] != "https://media.example.com/properties/owners/u1/gallery/old.jpg" {
		t.Fatalf("previously uploaded URL was not preserved: %q", form.GalleryURLs[0])
	}
	for _, u := range append(form.GalleryURLs, form.MainImageURL) {
		if IsPending(u) {
			t.Fatalf("pending URL survived flush: %q", u)
		}
	}
	// 3 gallery + 1 main, the old real URL is not re-uploaded
	if len(store.objects) != 4 {
		t.Fatalf("uploaded objects = %d, want 4", len(store.objects))
	}
	if got := len(staging.Files("sess-1")); got != 0 {
		t.Fatalf("staging not cleared after flush: %d fields", got)
	}
}

func TestFlushErrorLeavesStagingIntact(t *testing.T) {
	staging := NewStaging()
	store := newFakeUploader()
	store.failOn = "/docs/"
	strategy := NewDeferredStrategy(staging, store, "sess-1")

	form := &model.FormData{}
	_, err := strategy.HandleFile(context.Background(), form, FieldIdentification, someFiles(1))
	if err != nil {
		t.Fatalf("HandleFile: %v", err)
	}

	if err := strategy.Flush(context.Background(), "new-user", form); err == nil {
		t.Fatal("expected flush error")
	}
	if got := len(staging.Files("sess-1")[FieldIdentification]); got != 1 {
		t.Fatalf("failed flush must keep staged files for retry, got %d", got)
	}
}

func TestDeferredSingleSlotReplacesStagedFile(t *testing.T) {
	staging := NewStaging()
	strategy := NewDeferredStrategy(staging, newFakeUploader(), "sess-1")

	form := &model.FormData{}
	for i := 0; i < 3; i++ {
		_, err := strategy.HandleFile(context.Background(), form, FieldPredial, someFiles(1))
		if err != nil {
			t.Fatalf("HandleFile: %v", err)
		}
	}
	if got := len(staging.Files("sess-1")[FieldPredial]); got != 1 {
		t.Fatalf("single-slot field staged %d files, want 1", got)
	}
}
