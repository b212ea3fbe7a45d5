package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Format is a report output format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for f
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// PDFPrinter converts an HTML document to PDF
type PDFPrinter interface {
	PrintPDF(ctx context.Context, document []byte) ([]byte, error)
}

// Table is tabular report data shared by all formats
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Render encodes t in format. printer may be nil when PDF output is disabled.
func (t *Table) Render(ctx context.Context, format Format, printer PDFPrinter) ([]byte, error) {
	switch format {
	case FormatCSV:
		return t.encodeCSV()
	case FormatJSON:
		return t.encodeJSON()
	case FormatHTML:
		return t.encodeHTML()
	case FormatPDF:
		if printer == nil {
			return nil, fmt.Errorf("%w: pdf output is disabled", ErrUnsupportedFormat)
		}
		doc, err := t.encodeHTML()
		if err != nil {
			return nil, err
		}
		return printer.PrintPDF(ctx, doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (t *Table) encodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeJSON encodes rows as objects keyed by column name
func (t *Table) encodeJSON() ([]byte, error) {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}

	out, err := json.Marshal(struct {
		Title   string              `json:"title"`
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}{t.Title, t.Columns, records})
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return out, nil
}

// encodeHTML builds the document as a node tree so cell values are always escaped
func (t *Table) encodeHTML() ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	root.AppendChild(head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	title := element(atom.Title)
	title.AppendChild(text(t.Title))
	head.AppendChild(title)
	style := element(atom.Style)
	style.AppendChild(text("table{border-collapse:collapse}th,td{border:1px solid #999;padding:4px 8px;font:12px sans-serif}"))
	head.AppendChild(style)

	body := element(atom.Body)
	root.AppendChild(body)
	h1 := element(atom.H1)
	h1.AppendChild(text(t.Title))
	body.AppendChild(h1)

	table := element(atom.Table)
	body.AppendChild(table)

	thead := element(atom.Thead)
	table.AppendChild(thead)
	thead.AppendChild(row(atom.Th, t.Columns))

	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, r := range t.Rows {
		tbody.AppendChild(row(atom.Td, r))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("html render: %w", err)
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func row(cell atom.Atom, values []string) *html.Node {
	tr := element(atom.Tr)
	for _, v := range values {
		c := element(cell)
		c.AppendChild(text(v))
		tr.AppendChild(c)
	}
	return tr
}
