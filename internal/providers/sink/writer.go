package sink

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Writer renders batches in one output format.
type Writer interface {
	Write(b *types.Batch) error
	// Close writes any trailer. It does not close the underlying output.
	Close() error
}

// NewWriterFunc builds a writer on top of a buffered output.
type NewWriterFunc func(w *bufio.Writer) Writer

// Formats lists the writers by format name.
var Formats = map[string]NewWriterFunc{
	"ascii": func(w *bufio.Writer) Writer { return &asciiWriter{w: w} },
	"csv":   func(w *bufio.Writer) Writer { return &csvWriter{w: csv.NewWriter(w)} },
	"json":  func(w *bufio.Writer) Writer { return &jsonWriter{w: w} },
	"zeek":  func(w *bufio.Writer) Writer { return &zeekWriter{w: w} },
}

// render formats a value as plain text. Unset values become unset.
func render(v any, unset string) string {
	switch x := v.(type) {
	case nil:
		return unset
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

type asciiWriter struct {
	w *bufio.Writer
}

func (a *asciiWriter) Write(b *types.Batch) error {
	for _, row := range b.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			if s, ok := v.(string); ok {
				values[i] = strconv.Quote(s)
				continue
			}
			values[i] = render(v, "nil")
		}
		if _, err := fmt.Fprintf(a.w, "<%s>\n", strings.Join(values, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func (a *asciiWriter) Close() error { return nil }

type csvWriter struct {
	w      *csv.Writer
	header string
}

func (c *csvWriter) Write(b *types.Batch) error {
	if header := strings.Join(b.Fields, ","); header != c.header {
		c.header = header
		if err := c.w.Write(b.Fields); err != nil {
			return err
		}
	}
	record := make([]string, len(b.Fields))
	for _, row := range b.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = render(row[i], "")
			}
		}
		if err := c.w.Write(record); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

type jsonWriter struct {
	w *bufio.Writer
}

func (j *jsonWriter) Write(b *types.Batch) error {
	for i := range b.Rows {
		line, err := sonic.ConfigStd.Marshal(b.Record(i))
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		j.w.Write(line)
		if err := j.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func (j *jsonWriter) Close() error { return nil }

type zeekWriter struct {
	w      *bufio.Writer
	schema string
	opened bool
}

func zeekType(v any) string {
	switch v.(type) {
	case int64, int:
		return "int"
	case uint64:
		return "count"
	case float64:
		return "double"
	case bool:
		return "bool"
	case time.Time:
		return "time"
	default:
		return "string"
	}
}

func zeekValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case bool:
		if x {
			return "T"
		}
		return "F"
	case time.Time:
		return fmt.Sprintf("%.6f", float64(x.UnixNano())/1e9)
	case string:
		if x == "" {
			return "(empty)"
		}
		return x
	default:
		return render(x, "-")
	}
}

func (z *zeekWriter) header(b *types.Batch) {
	if z.opened {
		fmt.Fprintf(z.w, "#close\t%s\n", time.Now().UTC().Format("2006-01-02-15-04-05"))
	}
	kinds := make([]string, len(b.Fields))
	for i := range kinds {
		kinds[i] = "string"
		for _, row := range b.Rows {
			if i < len(row) && row[i] != nil {
				kinds[i] = zeekType(row[i])
				break
			}
		}
	}
	fmt.Fprintf(z.w, "#separator \\x09\n#set_separator\t,\n#empty_field\t(empty)\n#unset_field\t-\n")
	fmt.Fprintf(z.w, "#path\t%s\n", strings.TrimPrefix(b.Schema, "zeek."))
	fmt.Fprintf(z.w, "#open\t%s\n", time.Now().UTC().Format("2006-01-02-15-04-05"))
	fmt.Fprintf(z.w, "#fields\t%s\n", strings.Join(b.Fields, "\t"))
	fmt.Fprintf(z.w, "#types\t%s\n", strings.Join(kinds, "\t"))
	z.schema = b.Schema
	z.opened = true
}

func (z *zeekWriter) Write(b *types.Batch) error {
	if !z.opened || b.Schema != z.schema {
		z.header(b)
	}
	values := make([]string, len(b.Fields))
	for _, row := range b.Rows {
		for i := range values {
			values[i] = "-"
			if i < len(row) {
				values[i] = zeekValue(row[i])
			}
		}
		if _, err := z.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (z *zeekWriter) Close() error {
	if z.opened {
		_, err := fmt.Fprintf(z.w, "#close\t%s\n", time.Now().UTC().Format("2006-01-02-15-04-05"))
		return err
	}
	return nil
}
