package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/magnogrupo/portal/internal/model"
)

// ImmediateStrategy uploads straight to object storage under the signed-in
// owner's namespace and stores the returned URL in the form.
type ImmediateStrategy struct {
	store  Uploader
	userID string
}

func NewImmediateStrategy(store Uploader, userID string) *ImmediateStrategy {
	return &ImmediateStrategy{store: store, userID: userID}
}

func (s *ImmediateStrategy) HandleFile(ctx context.Context, form *model.FormData, field Field, files []File) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	limit := maxFiles(field)
	if limit == 1 {
		url, err := s.upload(ctx, field, files[0])
		if err != nil {
			return "", err
		}
		setFieldURLs(form, field, []string{url})
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
		url, err := s.upload(ctx, field, f)
		if err != nil {
			return "", err
		}
		urls = append(urls, url)
	}
	setFieldURLs(form, field, urls)
	return notice, nil
}

// Flush is a no-op: nothing is deferred for authenticated owners.
func (s *ImmediateStrategy) Flush(ctx context.Context, userID string, form *model.FormData) error {
	return nil
}

func (s *ImmediateStrategy) upload(ctx context.Context, field Field, f File) (string, error) {
	path := objectPath(s.userID, field, f.Name)
	err := s.store.Save(ctx, path, bytes.NewReader(f.Content))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", field, err)
	}
	return s.store.URL(path), nil
}
