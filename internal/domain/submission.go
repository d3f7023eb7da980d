package domain

import (
	"path/filepath"
	"strings"
)

type Category string

const (
	CategoryVideo      Category = "video"
	CategoryWebpage    Category = "webpage"
	CategoryJavaScript Category = "javascript"
	CategoryStylesheet Category = "stylesheet"
	CategoryData       Category = "data"
	CategoryText       Category = "text"
	CategoryDocument   Category = "document"
	CategoryArchive    Category = "archive"
	CategoryImage      Category = "image"
	CategoryUnknown    Category = "unknown"
)

// AllCategories lists every category in a stable order.
var AllCategories = []Category{
	CategoryVideo, CategoryWebpage, CategoryJavaScript, CategoryStylesheet, CategoryData,
	CategoryText, CategoryDocument, CategoryArchive, CategoryImage, CategoryUnknown,
}

var categoryByExtension = map[string]Category{
	"mp4": CategoryVideo, "mov": CategoryVideo, "avi": CategoryVideo, "mkv": CategoryVideo,
	"webm": CategoryVideo, "m4v": CategoryVideo,

	"html": CategoryWebpage, "htm": CategoryWebpage,

	"js": CategoryJavaScript, "mjs": CategoryJavaScript, "cjs": CategoryJavaScript,
	"jsx": CategoryJavaScript, "ts": CategoryJavaScript, "tsx": CategoryJavaScript,

	"css": CategoryStylesheet, "scss": CategoryStylesheet, "sass": CategoryStylesheet,
	"less": CategoryStylesheet,

	"json": CategoryData, "csv": CategoryData, "tsv": CategoryData, "xml": CategoryData,
	"yaml": CategoryData, "yml": CategoryData,

	"txt": CategoryText, "md": CategoryText, "markdown": CategoryText,

	"pdf": CategoryDocument, "doc": CategoryDocument, "docx": CategoryDocument,
	"odt": CategoryDocument, "rtf": CategoryDocument, "ppt": CategoryDocument,
	"pptx": CategoryDocument, "xls": CategoryDocument, "xlsx": CategoryDocument,

	"zip": CategoryArchive, "tar": CategoryArchive, "gz": CategoryArchive,
	"tgz": CategoryArchive, "rar": CategoryArchive, "7z": CategoryArchive,

	"png": CategoryImage, "jpg": CategoryImage, "jpeg": CategoryImage, "gif": CategoryImage,
	"svg": CategoryImage, "webp": CategoryImage, "bmp": CategoryImage,
}

// Submission is the ephemeral view of one uploaded work item. It lives only for the
// duration of a single verification call.
type Submission struct {
	FileName            string
	SizeBytes           int64
	MIMEHint            string
	DeclaredDescription string
	Category            Category
	TextContent         string
	HasText             bool
	ContentRef          string
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Classify maps file metadata to a category. The extension wins; the mime hint is only
// consulted when the extension is not in the table.
func Classify(fileName, mimeHint string) Category {
	ext := NormalizeExt(filepath.Ext(strings.TrimSpace(fileName)))
	if category, ok := categoryByExtension[ext]; ok {
		return category
	}
	return classifyMIME(mimeHint)
}

func classifyMIME(mimeHint string) Category {
	mime := strings.ToLower(strings.TrimSpace(mimeHint))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "":
		return CategoryUnknown
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	case mime == "text/html", mime == "application/xhtml+xml":
		return CategoryWebpage
	case mime == "text/javascript", mime == "application/javascript":
		return CategoryJavaScript
	case mime == "text/css":
		return CategoryStylesheet
	case mime == "application/json", mime == "text/csv", mime == "application/xml", mime == "text/xml":
		return CategoryData
	case mime == "application/pdf", mime == "application/msword":
		return CategoryDocument
	case mime == "application/zip", mime == "application/gzip", mime == "application/x-tar":
		return CategoryArchive
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.HasPrefix(mime, "text/"):
		return CategoryText
	default:
		return CategoryUnknown
	}
}

// IsTextBearing reports whether content of this category is decoded as text for scoring.
// Binary categories are judged on metadata only.
func IsTextBearing(category Category) bool {
	switch category {
	case CategoryWebpage, CategoryJavaScript, CategoryStylesheet, CategoryData, CategoryText:
		return true
	default:
		return false
	}
}

func ParseCategory(raw string) (Category, bool) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, category := range AllCategories {
		if category == value {
			return category, true
		}
	}
	return "", false
}

// Text returns the decoded content, or nil when the submission is judged on metadata only.
func (s Submission) Text() *string {
	if !s.HasText {
		return nil
	}
	text := s.TextContent
	return &text
}
