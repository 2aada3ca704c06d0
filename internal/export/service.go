package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type renderFunc func(ctx context.Context, html, title string) (*Result, error)

// Service turns report tables into files.
type Service struct {
	pdf  renderFunc
	docx renderFunc
}

func NewService() *Service {
	return &Service{pdf: exportPDF, docx: exportDOCX}
}

func (s *Service) Export(ctx context.Context, table Table, format Format) (*Result, error) {
	if format == FormatCSV {
		return exportCSV(table)
	}

	html, err := RenderReportHTML(table)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	switch format {
	case FormatPDF:
		return s.pdf(ctx, html, table.Title)
	case FormatDOCX:
		return s.docx(ctx, html, table.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func exportCSV(table Table) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(table.Title) + ".csv",
		MimeType: "text/csv; charset=utf-8",
	}, nil
}

// TableFromRows flattens a slice of report structs into a Table. Columns
// come from the fields' json tags; nil pointers render as empty cells.
func TableFromRows(title string, rows any) (Table, error) {
	value := reflect.ValueOf(rows)
	if value.Kind() != reflect.Slice {
		return Table{}, fmt.Errorf("table rows must be a slice, got %T", rows)
	}
	elem := value.Type().Elem()
	if elem.Kind() != reflect.Struct {
		return Table{}, fmt.Errorf("table rows must be structs, got %s", elem)
	}

	var columns []string
	var fields []int
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		columns = append(columns, name)
		fields = append(fields, i)
	}

	table := Table{Title: title, Columns: columns, Rows: make([][]string, 0, value.Len()), GeneratedAt: time.Now()}
	for i := 0; i < value.Len(); i++ {
		row := value.Index(i)
		cells := make([]string, len(fields))
		for j, index := range fields {
			cells[j] = formatCell(row.Field(index))
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func formatCell(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.Format("2006-01-02")
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', 2, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprint(v.Interface())
	}
}
