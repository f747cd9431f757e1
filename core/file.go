package core

// A File is a metadata row pointing at content in the blob store.
// Filename is the stored object name, OriginalName what the uploader called it.
type File struct {
	ID           int    `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Path         string `json:"filePath"`
	ContentType  string `json:"fileType"`
	Size         int64  `json:"fileSize"`
	UploadedBy   int    `json:"uploadedBy"`
	ArticleID    *int   `json:"articleId"`
	CategoryID   *int   `json:"categoryId"`
	TsCreated    int64  `json:"tsCreated"`
}

type FileStore interface {
	GetFile(id int) (*File, error)
	GetAllFiles(limit, offset int) ([]*File, error)
	GetFilesByArticle(articleID int) ([]*File, error)
	GetFilesByCategory(categoryID int) ([]*File, error)
	InsertFile(f *File) (*File, error)
	DeleteFile(id int) (bool, error)
}
