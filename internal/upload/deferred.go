package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/magnogrupo/portal/internal/model"
)

// DeferredStrategy stages guest files locally and records pending preview
// URLs in the form so the wizard can render them. Flush runs once the
// account exists: staged files are uploaded under the new owner id and every
// pending URL is swapped for the real one. Already-real URLs (a resumed
// draft) are preserved, never re-uploaded.
type DeferredStrategy struct {
	staging *Staging
	store   Uploader
	session string
}

func NewDeferredStrategy(staging *Staging, store Uploader, session string) *DeferredStrategy {
	return &DeferredStrategy{staging: staging, store: store, session: session}
}

func (s *DeferredStrategy) HandleFile(ctx context.Context, form *model.FormData, field Field, files []File) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	limit := maxFiles(field)
	if limit == 1 {
		f := files[0]
		s.stageSingle(field, f)
		setFieldURLs(form, field, []string{s.previewURL(field)})
		return "", nil
	}

	existing := fieldURLs(form, field)
	remaining := limit - len(existing)
	if remaining <= 0 {
		return capNotice(field), nil
	}

	notice := ""
	if len(files) > remaining {
		files = files[:remaining]
		notice = capNotice(field)
	}

	urls := existing
	for _, f := range files {
		s.staging.Add(s.session, field, f)
		urls = append(urls, s.previewURL(field))
	}
	setFieldURLs(form, field, urls)
	return notice, nil
}

// Flush uploads everything staged for this session under the owner id and
// replaces pending preview URLs with storage URLs.
func (s *DeferredStrategy) Flush(ctx context.Context, userID string, form *model.FormData) error {
	staged := s.staging.Files(s.session)

	for _, field := range []Field{FieldIdentification, FieldPredial, FieldMainImage, FieldGallery} {
		files := staged[field]
		if len(files) == 0 {
			continue
		}

		kept := realURLs(fieldURLs(form, field))
		for _, f := range files {
			path := objectPath(userID, field, f.Name)
			err := s.store.Save(ctx, path, bytes.NewReader(f.Content))
			if err != nil {
				return fmt.Errorf("failed to upload deferred %s: %w", field, err)
			}
			kept = append(kept, s.store.URL(path))
		}

		if limit := maxFiles(field); limit == 1 && len(kept) > 1 {
			kept = kept[len(kept)-1:]
		}
		setFieldURLs(form, field, kept)
	}

	s.staging.Clear(s.session)
	return nil
}

// stageSingle replaces any previously staged file for single-slot fields.
func (s *DeferredStrategy) stageSingle(field Field, f File) {
	s.staging.mu.Lock()
	defer s.staging.mu.Unlock()

	fields, ok := s.staging.sessions[s.session]
	if !ok {
		fields = make(map[Field][]File)
		s.staging.sessions[s.session] = fields
	}
	fields[field] = []File{f}
}

func (s *DeferredStrategy) previewURL(field Field) string {
	return fmt.Sprintf("%s%s/%s/%s", PendingURLPrefix, s.session, field, uuid.New().String())
}
