package core

import (
	"strings"
)

// Tags are many-to-many labels on articles. They have no access-control role.
type TagStore interface {
	GetAllTags(limit, offset int) ([]string, error)
	TagsOf(articleID int) ([]string, error)

	// SetTags replaces the article's tag set in one transaction, creating
	// tags as needed.
	SetTags(articleID int, tags []string) error
}

// CleanTag normalizes a tag name. It returns "" for unusable input.
func CleanTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.ToLower(tag)
	if len(tag) > 64 {
		return ""
	}
	return tag
}
