package export

import (
	"regexp"
	"strings"

	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

// Content types for lesson downloads.
const (
	ContentTypeDoc = "application/msword"
	ContentTypePDF = "application/pdf"
	ContentTypeCSV = "text/csv; charset=utf-8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename derives a download name from the subject, e.g. "Ilmu  Alam" -> Lesson_Plan_Ilmu_Alam.doc.
func Filename(subject, ext string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Untitled"
	}
	return "Lesson_Plan_" + whitespaceRun.ReplaceAllString(subject, "_") + ext
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Payload     []byte
}

// DocFile renders lesson content as a Word-compatible HTML document.
func DocFile(subject, content string) File {
	nodes := markdown.Parse(content)
	return File{
		Name:        Filename(subject, ".doc"),
		ContentType: ContentTypeDoc,
		Payload:     []byte(markdown.Document(subject, nodes)),
	}
}
