package core

import (
	"strings"
)

// Format tells how an article's content is rendered.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

func (f Format) Valid() bool {
	return f == FormatHTML || f == FormatMarkdown
}

type Article struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Format     Format `json:"format"`
	CategoryID *int   `json:"categoryId"`
	AuthorID   int    `json:"authorId"`
	Published  bool   `json:"published"`
	TsCreated  int64  `json:"tsCreated"`
	TsChanged  int64  `json:"tsChanged"`
}

// ArticlePatch changes only the supplied fields. A CategoryID of 0 detaches
// the article from its category.
type ArticlePatch struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Format     *Format `json:"format"`
	CategoryID *int    `json:"categoryId"`
	Published  *bool   `json:"published"`
}

func (p *ArticlePatch) Validate() error {
	if p.Title != nil {
		if err := ValidateArticleTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Format != nil && !p.Format.Valid() {
		return Validationf("unknown format %q", *p.Format)
	}
	return nil
}

type ArticleStore interface {
	GetArticle(id int) (*Article, error)
	GetAllArticles(limit, offset int) ([]*Article, error)
	GetArticlesByCategory(categoryID, limit, offset int) ([]*Article, error)
	InsertArticle(title, content string, format Format, categoryID *int, authorID int, published bool) (*Article, error)
	UpdateArticle(id int, patch ArticlePatch) (*Article, error)

	// DeleteArticle also removes the article's tag links. Deleting a
	// nonexistent id returns false, not an error.
	DeleteArticle(id int) (bool, error)

	// SearchArticles matches a case-insensitive substring over title and
	// content. It is unscoped by permission, callers must post-filter
	// results through the resolver.
	SearchArticles(q string, limit, offset int) ([]*Article, error)
}

func ValidateArticleTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return Validationf("title is required")
	}
	if len(title) > 256 {
		return Validationf("title must be at most 256 characters")
	}
	return nil
}
