package source

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/providers/stage/stagetest"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

const zeekConn = "#separator \\x09\n" +
	"#set_separator\t,\n" +
	"#empty_field\t(empty)\n" +
	"#unset_field\t-\n" +
	"#path\tconn\n" +
	"#fields\tts\tuid\tid.orig_p\tduration\tlocal_orig\n" +
	"#types\ttime\tstring\tport\tinterval\tbool\n" +
	"1258531221.486539\tCmES5u32sYpV7JYN\t68\t0.163820\tT\n" +
	"1258531680.237254\tCP5yab2Lv1M4gFJ8a9\t137\t-\tF\n"

func decodeAll(t *testing.T, d Decoder) []record {
	t.Helper()
	var out []record
	for {
		rec, err := d.Decode()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestCSVDecoder(t *testing.T) {
	d := newCSVDecoder(reader("host,port,up\nexample.com,443,true\nlocalhost,,false\n"), types.Settings{})
	recs := decodeAll(t, d)
	require.Len(t, recs, 2)
	assert.Equal(t, "csv", recs[0].schema)
	assert.Equal(t, []string{"host", "port", "up"}, recs[0].fields)
	assert.Equal(t, types.Event{"example.com", int64(443), true}, recs[0].row)
	assert.Equal(t, types.Event{"localhost", nil, false}, recs[1].row)
}

func TestJSONDecoders(t *testing.T) {
	input := `{"b": 1, "a": "x"}` + "\n\n" + `{"event_type": "alert", "src_ip": "10.0.0.1"}` + "\n"

	recs := decodeAll(t, newJSONDecoder(reader(input), types.Settings{"import": types.Settings{"schema": "custom"}}))
	require.Len(t, recs, 2)
	assert.Equal(t, "custom", recs[0].schema)
	assert.Equal(t, []string{"a", "b"}, recs[0].fields)
	assert.Equal(t, types.Event{"x", float64(1)}, recs[0].row)

	recs = decodeAll(t, newSuricataDecoder(reader(input), types.Settings{}))
	assert.Equal(t, "suricata.unknown", recs[0].schema)
	assert.Equal(t, "suricata.alert", recs[1].schema)

	_, err := newJSONDecoder(reader("{broken\n"), types.Settings{}).Decode()
	assert.Error(t, err)
}

func TestParseSyslog(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		schema string
		check  func(t *testing.T, row types.Event)
	}{
		{
			name:   "rfc5424",
			line:   "<165>1 2003-10-11T22:14:15.003Z mymachine.example.com evntslog - ID47 An application event",
			schema: "syslog.rfc5424",
			check: func(t *testing.T, row types.Event) {
				assert.Equal(t, int64(20), row[0])
				assert.Equal(t, int64(5), row[1])
				assert.IsType(t, time.Time{}, row[3])
				assert.Equal(t, "mymachine.example.com", row[4])
				assert.Nil(t, row[6])
				assert.Equal(t, "An application event", row[8])
			},
		},
		{
			name:   "bsd style",
			line:   "<34>Oct 11 22:14:15 mymachine su: 'su root' failed",
			schema: "syslog.unknown",
			check: func(t *testing.T, row types.Event) {
				assert.Equal(t, int64(4), row[0])
				assert.Equal(t, int64(2), row[1])
				assert.Equal(t, "Oct 11 22:14:15 mymachine su: 'su root' failed", row[2])
			},
		},
		{
			name:   "no priority",
			line:   "plain text",
			schema: "syslog.unknown",
			check: func(t *testing.T, row types.Event) {
				assert.Nil(t, row[0])
				assert.Equal(t, "plain text", row[2])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parseSyslog(tt.line)
			assert.Equal(t, tt.schema, rec.schema)
			assert.Len(t, rec.row, len(rec.fields))
			tt.check(t, rec.row)
		})
	}
}

func TestZeekDecoder(t *testing.T) {
	recs := decodeAll(t, newZeekDecoder(reader(zeekConn), types.Settings{}))
	require.Len(t, recs, 2)
	assert.Equal(t, "zeek.conn", recs[0].schema)
	assert.Equal(t, []string{"ts", "uid", "id.orig_p", "duration", "local_orig"}, recs[0].fields)

	row := recs[0].row
	assert.Equal(t, int64(1258531221), row[0].(time.Time).Unix())
	assert.Equal(t, "CmES5u32sYpV7JYN", row[1])
	assert.Equal(t, "68", row[2])
	assert.Equal(t, 0.16382, row[3])
	assert.Equal(t, true, row[4])
	assert.Nil(t, recs[1].row[3])

	_, err := newZeekDecoder(reader("1\t2\n"), types.Settings{}).Decode()
	assert.Error(t, err)
}

func TestGenerator(t *testing.T) {
	recs := decodeAll(t, newGenerator(types.Settings{"import": types.Settings{"max-events": 3, "seed": 10}}))
	require.Len(t, recs, 3)
	assert.Equal(t, int64(10), recs[0].row[0])
	assert.Equal(t, "event-12", recs[2].row[3])
}

func TestOpenInputDecompressesGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conn.log.gz")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(zeekConn))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	in, err := openInput(path, nil, "")
	require.NoError(t, err)
	defer in.Close()
	recs := decodeAll(t, newZeekDecoder(in.reader, types.Settings{}))
	assert.Len(t, recs, 2)
}

func TestOpenInputTranscodes(t *testing.T) {
	latin1 := "name,city\nJos\xe9,Malm\xf6\n"
	in, err := openInput(Stdin, strings.NewReader(latin1), "ISO-8859-1")
	require.NoError(t, err)
	defer in.Close()

	assert.Equal(t, "windows-1252", in.charset)
	recs := decodeAll(t, newCSVDecoder(in.reader, types.Settings{}))
	require.Len(t, recs, 1)
	assert.Equal(t, "José", recs[0].row[0])
	assert.Equal(t, "Malmö", recs[0].row[1])

	_, err = openInput(Stdin, strings.NewReader("x"), "klingon")
	assert.Error(t, err)
}

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		name string
		head []byte
	}{
		{name: "ascii", head: []byte("ts,uid\n1,a\n")},
		{name: "utf-8", head: []byte("city\nMalmö\n")},
		{name: "cut rune", head: []byte("Malmö")[:5]},
		{name: "empty", head: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, UTF8, detectCharset(tt.head))
		})
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/x.csv", "b/c/y.csv", "z.json"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	got, err := expand(filepath.Join(dir, "**", "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a", "x.csv"), filepath.Join(dir, "b", "c", "y.csv")}, got)

	got, err = expand(Stdin)
	require.NoError(t, err)
	assert.Equal(t, []string{Stdin}, got)

	_, err = expand(filepath.Join(dir, "*.pcap"))
	assert.Error(t, err)
}

func waitDone(t *testing.T, a *actor.Actor) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("source did not finish")
	}
}

func TestSourceRequiresImporter(t *testing.T) {
	host := stagetest.NewHost()
	_, err := Factory("test")(context.Background(), host, stagetest.Args("spawn source test", "source-1", "", nil))
	assert.Error(t, err)
}

func TestSourceRejectsBadOptions(t *testing.T) {
	host := stagetest.NewHost()
	host.Add("importer", "importer", host.Sys.Spawn("importer", &stagetest.Collector{}))

	tests := []struct {
		name   string
		format string
		opts   types.Settings
	}{
		{name: "batch size", format: "test", opts: types.Settings{"import": types.Settings{"batch-size": -1}}},
		{name: "format", format: "pcap", opts: nil},
		{name: "no match", format: "csv", opts: types.Settings{"import": types.Settings{"read": filepath.Join(t.TempDir(), "*.csv")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Factory(tt.format)(context.Background(), host, stagetest.Args("spawn source "+tt.format, "source-1", "", tt.opts))
			assert.Error(t, err)
		})
	}
}

func TestSourceReadsToEnd(t *testing.T) {
	host := stagetest.NewHost()
	collector := &stagetest.Collector{}
	host.Add("importer", "importer", host.Sys.Spawn("importer", collector))

	opts := types.Settings{"import": types.Settings{"max-events": 25, "batch-size": 10}}
	src, err := Factory("test")(context.Background(), host, stagetest.Args("spawn source test", "source-1", "", opts))
	require.NoError(t, err)
	waitDone(t, src)
	assert.NoError(t, src.Err())

	var sizes []int
	for _, m := range collector.Messages() {
		b := m.(*types.Batch)
		sizes = append(sizes, b.Len())
		b.Release()
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)
}

func TestSourceReadsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.log"), []byte(zeekConn), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.log"), []byte(zeekConn), 0o644))

	host := stagetest.NewHost()
	collector := &stagetest.Collector{}
	host.Add("importer", "importer", host.Sys.Spawn("importer", collector))

	opts := types.Settings{"import": types.Settings{"read": filepath.Join(dir, "*.log")}}
	src, err := Factory("zeek")(context.Background(), host, stagetest.Args("spawn source zeek", "source-1", "", opts))
	require.NoError(t, err)
	waitDone(t, src)

	events := 0
	for _, m := range collector.Messages() {
		b := m.(*types.Batch)
		assert.Equal(t, "zeek.conn", b.Schema)
		events += b.Len()
		b.Release()
	}
	assert.Equal(t, 4, events)
}

func TestSourceReadsStdin(t *testing.T) {
	host := stagetest.NewHost()
	collector := &stagetest.Collector{}
	importer := host.Sys.Spawn("importer", collector)

	args := stagetest.Args("spawn source csv", "source-1", "", nil)
	src, err := newSource("csv", args, host.Sys, importer, host.Log, strings.NewReader("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	a := host.Sys.Spawn("source-1", src)
	waitDone(t, a)

	msgs := collector.Messages()
	require.Len(t, msgs, 1)
	b := msgs[0].(*types.Batch)
	assert.Equal(t, 2, b.Len())
	b.Release()
}
