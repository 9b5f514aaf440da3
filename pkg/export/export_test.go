package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

const sampleLesson = `## Rencana Pembelajaran
- **Tujuan**: memahami luas segitiga
| Tahap | Kegiatan |
|---|---|
| Pendahuluan | Apersepsi |
| Inti | Diskusi **kelompok** |
> [SCHEMA] Segitiga ABC dengan alas 6 cm

Penutup dengan refleksi.`

func TestFilenameCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Lesson_Plan_Ilmu_Pengetahuan_Alam.doc", Filename("  Ilmu  Pengetahuan\tAlam ", ".doc"))
	assert.Equal(t, "Lesson_Plan_Untitled.pdf", Filename("   ", ".pdf"))
}

func TestDocFileRendersWordDocument(t *testing.T) {
	file := DocFile("Matematika", sampleLesson)
	assert.Equal(t, "Lesson_Plan_Matematika.doc", file.Name)
	assert.Equal(t, ContentTypeDoc, file.ContentType)

	body := string(file.Payload)
	assert.Contains(t, body, "<h2>Rencana Pembelajaran</h2>")
	assert.Equal(t, 3, strings.Count(body, "<tr>"))
	assert.Contains(t, body, `<div class="schema">`)
}

func TestPDFExporterRendersNodes(t *testing.T) {
	exporter := NewPDFExporter()
	payload, err := exporter.Render("Matematika", markdown.Parse(sampleLesson))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF-")))
}

func TestPDFExporterPaginatesLongTables(t *testing.T) {
	var b strings.Builder
	b.WriteString("| No | Kegiatan |\n|---|---|\n")
	for i := 0; i < 120; i++ {
		b.WriteString("| 1 | Siswa mengamati gambar dan menuliskan hasil pengamatan pada lembar kerja |\n")
	}
	file, err := NewPDFExporter().PDFFile("Bahasa Indonesia", b.String())
	require.NoError(t, err)
	assert.Equal(t, "Lesson_Plan_Bahasa_Indonesia.pdf", file.Name)
	assert.Equal(t, ContentTypePDF, file.ContentType)
	assert.NotEmpty(t, file.Payload)
}

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data, err := exporter.Render(Dataset{
		Headers: []string{"subject", "level"},
		Rows: []map[string]string{
			{"subject": "Matematika, Dasar", "level": "SD"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "\ufeffsubject,level\n\"Matematika, Dasar\",SD\n", string(data))

	_, err = exporter.Render(Dataset{})
	assert.Error(t, err)
}
