package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// record is one decoded event.
type record struct {
	schema string
	fields []string
	row    types.Event
}

// Decoder turns an input stream into records. Decode returns io.EOF at the
// end of the stream.
type Decoder interface {
	Decode() (record, error)
}

// NewDecoderFunc builds a decoder for one input.
type NewDecoderFunc func(r *bufio.Reader, opts types.Settings) Decoder

// Formats lists the decoders by format name.
var Formats = map[string]NewDecoderFunc{
	"csv":      newCSVDecoder,
	"json":     newJSONDecoder,
	"suricata": newSuricataDecoder,
	"syslog":   newSyslogDecoder,
	"zeek":     newZeekDecoder,
}

// parseValue infers a typed value from a text field.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

type csvDecoder struct {
	r      *csv.Reader
	schema string
	fields []string
}

func newCSVDecoder(r *bufio.Reader, opts types.Settings) Decoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return &csvDecoder{r: cr, schema: opts.GetString("import.schema", "csv")}
}

func (d *csvDecoder) Decode() (record, error) {
	if d.fields == nil {
		header, err := d.r.Read()
		if err != nil {
			return record{}, err
		}
		d.fields = header
	}
	values, err := d.r.Read()
	if err != nil {
		return record{}, err
	}
	row := make(types.Event, len(d.fields))
	for i := range d.fields {
		if i < len(values) && values[i] != "" {
			row[i] = parseValue(values[i])
		}
	}
	return record{schema: d.schema, fields: d.fields, row: row}, nil
}

// lineReader yields non-empty lines.
type lineReader struct {
	sc *bufio.Scanner
}

func newLineReader(r *bufio.Reader) lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return lineReader{sc: sc}
}

func (l lineReader) next() ([]byte, error) {
	for l.sc.Scan() {
		line := l.sc.Bytes()
		if len(strings.TrimSpace(string(line))) > 0 {
			return line, nil
		}
	}
	if err := l.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

type jsonDecoder struct {
	lines  lineReader
	schema func(map[string]any) string
}

func newJSONDecoder(r *bufio.Reader, opts types.Settings) Decoder {
	name := opts.GetString("import.schema", "json")
	return &jsonDecoder{lines: newLineReader(r), schema: func(map[string]any) string { return name }}
}

func newSuricataDecoder(r *bufio.Reader, opts types.Settings) Decoder {
	return &jsonDecoder{lines: newLineReader(r), schema: func(obj map[string]any) string {
		if et, ok := obj["event_type"].(string); ok && et != "" {
			return "suricata." + et
		}
		return "suricata.unknown"
	}}
}

func (d *jsonDecoder) Decode() (record, error) {
	line, err := d.lines.next()
	if err != nil {
		return record{}, err
	}
	var obj map[string]any
	if err := sonic.Unmarshal(line, &obj); err != nil {
		return record{}, fmt.Errorf("malformed json: %w", err)
	}
	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	row := make(types.Event, len(fields))
	for i, f := range fields {
		row[i] = obj[f]
	}
	return record{schema: d.schema(obj), fields: fields, row: row}, nil
}

var (
	syslogRFC5424Fields = []string{"facility", "severity", "version", "timestamp", "hostname", "app_name", "process_id", "message_id", "message"}
	syslogUnknownFields = []string{"facility", "severity", "message"}
)

type syslogDecoder struct {
	lines lineReader
}

func newSyslogDecoder(r *bufio.Reader, opts types.Settings) Decoder {
	return &syslogDecoder{lines: newLineReader(r)}
}

func (d *syslogDecoder) Decode() (record, error) {
	line, err := d.lines.next()
	if err != nil {
		return record{}, err
	}
	return parseSyslog(string(line)), nil
}

// parseSyslog understands RFC 5424 messages and falls back to keeping the
// raw message with whatever priority it carried.
func parseSyslog(line string) record {
	var facility, severity any
	rest := line
	if strings.HasPrefix(line, "<") {
		if end := strings.IndexByte(line, '>'); end > 1 {
			if pri, err := strconv.Atoi(line[1:end]); err == nil && pri >= 0 && pri <= 191 {
				facility, severity = int64(pri/8), int64(pri%8)
				rest = line[end+1:]
			}
		}
	}

	parts := strings.SplitN(rest, " ", 7)
	if facility != nil && len(parts) >= 6 {
		if version, err := strconv.Atoi(parts[0]); err == nil && version > 0 {
			msg := ""
			if len(parts) == 7 {
				msg = parts[6]
			}
			row := types.Event{facility, severity, int64(version), nilValue(parts[1]), nilValue(parts[2]),
				nilValue(parts[3]), nilValue(parts[4]), nilValue(parts[5]), msg}
			if ts, err := time.Parse(time.RFC3339Nano, parts[1]); err == nil {
				row[3] = ts
			}
			return record{schema: "syslog.rfc5424", fields: syslogRFC5424Fields, row: row}
		}
	}
	return record{schema: "syslog.unknown", fields: syslogUnknownFields, row: types.Event{facility, severity, rest}}
}

func nilValue(s string) any {
	if s == "-" {
		return nil
	}
	return s
}

type zeekDecoder struct {
	lines     lineReader
	separator string
	unset     string
	empty     string
	schema    string
	fields    []string
	kinds     []string
}

func newZeekDecoder(r *bufio.Reader, opts types.Settings) Decoder {
	return &zeekDecoder{lines: newLineReader(r), separator: "\t", unset: "-", empty: "(empty)"}
}

func (d *zeekDecoder) Decode() (record, error) {
	for {
		raw, err := d.lines.next()
		if err != nil {
			return record{}, err
		}
		line := string(raw)
		if strings.HasPrefix(line, "#") {
			d.header(line)
			continue
		}
		if d.fields == nil {
			return record{}, errors.New("zeek log without #fields header")
		}
		values := strings.Split(line, d.separator)
		row := make(types.Event, len(d.fields))
		for i := range d.fields {
			if i >= len(values) || values[i] == d.unset {
				continue
			}
			row[i] = d.value(i, values[i])
		}
		return record{schema: d.schema, fields: d.fields, row: row}, nil
	}
}

func (d *zeekDecoder) header(line string) {
	if strings.HasPrefix(line, "#separator ") {
		sep := strings.TrimPrefix(line, "#separator ")
		if unq, err := strconv.Unquote(`"` + sep + `"`); err == nil {
			d.separator = unq
		}
		return
	}
	key, value, ok := strings.Cut(line[1:], d.separator)
	if !ok {
		return
	}
	switch key {
	case "path":
		d.schema = "zeek." + value
	case "unset_field":
		d.unset = value
	case "empty_field":
		d.empty = value
	case "fields":
		d.fields = strings.Split(value, d.separator)
	case "types":
		d.kinds = strings.Split(value, d.separator)
	}
}

func (d *zeekDecoder) value(i int, s string) any {
	if s == d.empty {
		return ""
	}
	kind := ""
	if i < len(d.kinds) {
		kind = d.kinds[i]
	}
	switch kind {
	case "count":
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			return v
		}
	case "int":
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	case "double", "interval":
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	case "time":
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			sec := int64(v)
			return time.Unix(sec, int64((v-float64(sec))*1e9)).UTC()
		}
	case "bool":
		return s == "T"
	}
	return s
}

// generator produces deterministic synthetic events.
type generator struct {
	remaining int
	next      int64
	start     time.Time
}

var testFields = []string{"id", "ts", "value", "label"}

func newGenerator(opts types.Settings) *generator {
	return &generator{
		remaining: opts.GetInt("import.max-events", 100),
		next:      int64(opts.GetInt("import.seed", 0)),
		start:     time.Unix(0, 0).UTC(),
	}
}

func (g *generator) Decode() (record, error) {
	if g.remaining <= 0 {
		return record{}, io.EOF
	}
	g.remaining--
	n := g.next
	g.next++
	row := types.Event{n, g.start.Add(time.Duration(n) * time.Second), float64(n) * 0.5, "event-" + strconv.FormatInt(n, 10)}
	return record{schema: "test", fields: testFields, row: row}, nil
}
