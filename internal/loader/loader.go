package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sairam-f/agentic-rag/internal/models"
)

// ErrUnsupportedType marks a file extension no loader handles. Callers check
// it with errors.Is to skip the file instead of aborting a whole run.
var ErrUnsupportedType = errors.New("unsupported file type")

// LoadDocument reads the file at path into pages tagged with source metadata.
// Paged formats (PDF) produce one page per physical page with a 1-based page
// number; everything else produces a single page with a nil page number.
func LoadDocument(path string) ([]models.Page, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		return loadText(path)
	case ".md":
		return loadMarkdown(path)
	case ".docx":
		return loadDOCX(path)
	case ".pdf":
		return loadPDF(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

func loadText(path string) ([]models.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []models.Page{{
		Text:     string(data),
		Metadata: models.Metadata{Source: filepath.Base(path)},
	}}, nil
}

// loadMarkdown strips markup by walking the goldmark AST and collecting the
// text segments, so headings and emphasis don't leak syntax into chunks.
func loadMarkdown(path string) ([]models.Page, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var buf bytes.Buffer
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return []models.Page{{
		Text:     buf.String(),
		Metadata: models.Metadata{Source: filepath.Base(path)},
	}}, nil
}

func loadDOCX(path string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var lines []string
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) != "" {
			lines = append(lines, p)
		}
	}
	return []models.Page{{
		Text:     strings.Join(lines, "\n"),
		Metadata: models.Metadata{Source: filepath.Base(path)},
	}}, nil
}

func loadPDF(path string) ([]models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	var pages []models.Page
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, source, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pageNum := i
		pages = append(pages, models.Page{
			Text:     pageText,
			Metadata: models.Metadata{Source: source, Page: &pageNum},
		})
	}
	return pages, nil
}

func loadXLSX(path string) ([]models.Page, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	source := filepath.Base(path)
	var pages []models.Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var sb strings.Builder
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
		if strings.TrimSpace(sb.String()) == "" {
			continue
		}
		pageNum := sheetNum + 1
		pages = append(pages, models.Page{
			Text:     "Sheet: " + sheetName + "\n" + sb.String(),
			Metadata: models.Metadata{Source: source, Page: &pageNum},
		})
	}
	return pages, nil
}
