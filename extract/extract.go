package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Text extracts plain text from an uploaded word-processor document.
// Supported formats: .docx, .pdf, .txt, .md.
func Text(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".docx":
		return docxText(filePath)
	case ".pdf":
		return pdfText(filePath)
	case ".txt", ".md":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file format: %s", filepath.Ext(filePath))
	}
}

func docxText(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return flattenDocxXML(content), nil
}

// flattenDocxXML joins the <w:t> text runs of a document body, turning
// paragraph ends into line feeds.
func flattenDocxXML(content string) string {
	var b strings.Builder
	for _, paragraph := range strings.Split(content, "</w:p>") {
		runs := textRuns(paragraph)
		if runs == "" {
			continue
		}
		b.WriteString(runs)
		b.WriteString("\n")
	}
	return unescapeXML(strings.TrimSuffix(b.String(), "\n"))
}

func textRuns(paragraph string) string {
	var b strings.Builder
	rest := paragraph
	for {
		start := strings.Index(rest, "<w:t")
		if start < 0 {
			break
		}
		rest = rest[start:]
		open := strings.Index(rest, ">")
		if open < 0 {
			break
		}
		rest = rest[open+1:]
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			break
		}
		b.WriteString(rest[:end])
		rest = rest[end:]
	}
	return b.String()
}

var xmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

func pdfText(filePath string) (string, error) {
	if err := pdfapi.ValidateFile(filePath, pdfmodel.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("validate pdf: %w", err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
