package model

import (
	"time"
)

// Guide is a markdown article for property owners (how pricing works, what
// documents to prepare, and so on).
type Guide struct {
	Title       string
	Slug        string
	Date        time.Time
	Author      string
	Description string
	Tags        []string
	HTMLContent string
	ReadTime    int
	HeroImage   string
}
