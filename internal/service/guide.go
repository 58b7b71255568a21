package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/magnogrupo/portal/internal/markdown"
	"github.com/magnogrupo/portal/internal/model"
)

// GuideService serves the owner-facing help articles from markdown files
// under the content directory.
type GuideService struct {
	parser      *markdown.Parser
	contentPath string
}

func NewGuideService(contentPath string) *GuideService {
	return &GuideService{
		parser:      markdown.NewParser(),
		contentPath: contentPath,
	}
}

func (s *GuideService) Guides() ([]*model.Guide, error) {
	pattern := filepath.Join(s.contentPath, "guides", "*.md")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var guides []*model.Guide
	for _, file := range files {
		guide, err := s.Guide(strings.TrimSuffix(filepath.Base(file), ".md"))
		if err != nil {
			continue
		}
		guides = append(guides, guide)
	}

	sort.Slice(guides, func(i, j int) bool {
		return guides[i].Date.After(guides[j].Date)
	})

	return guides, nil
}

// GuidesByTag filters the guide list to those carrying the given tag.
func (s *GuideService) GuidesByTag(tag string) ([]*model.Guide, error) {
	guides, err := s.Guides()
	if err != nil {
		return nil, err
	}

	var filtered []*model.Guide
	for _, guide := range guides {
		for _, t := range guide.Tags {
			if strings.EqualFold(t, tag) {
				filtered = append(filtered, guide)
				break
			}
		}
	}
	return filtered, nil
}

func (s *GuideService) Guide(slug string) (*model.Guide, error) {
	path := filepath.Join(s.contentPath, "guides", slug+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("guide not found: %s", slug)
	}

	htmlContent, meta, err := s.parser.ParseWithFrontmatter(content)
	if err != nil {
		return nil, err
	}

	guide := &model.Guide{
		Slug:        slug,
		HTMLContent: string(htmlContent),
	}

	if title, ok := meta["title"].(string); ok {
		guide.Title = title
	}
	if author, ok := meta["author"].(string); ok {
		guide.Author = author
	}
	if description, ok := meta["description"].(string); ok {
		guide.Description = description
	}
	if dateStr, ok := meta["date"].(string); ok {
		date, err := time.Parse("2006-01-02", dateStr)
		if err == nil {
			guide.Date = date
		}
	}
	if tags, ok := meta["tags"].([]any); ok {
		for _, tag := range tags {
			if tagStr, ok := tag.(string); ok {
				guide.Tags = append(guide.Tags, tagStr)
			}
		}
	}
	if heroImage, ok := meta["hero_image"].(string); ok {
		guide.HeroImage = heroImage
	}

	guide.ReadTime = readTime(string(content))

	return guide, nil
}

func readTime(content string) int {
	const wordsPerMinute = 200
	minutes := len(strings.Fields(content)) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
