package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Stdin is the import.read value that selects standard input.
const Stdin = "-"

const sniffSize = 3072

// expand resolves import.read into the list of inputs.
func expand(pattern string) ([]string, error) {
	if pattern == Stdin {
		return []string{Stdin}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no input matches %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// UTF8 is the charset of inputs that need no transcoding.
const UTF8 = "utf-8"

// input is one opened file with transparent gzip decompression and
// transcoding to UTF-8.
type input struct {
	name    string
	charset string
	reader  *bufio.Reader
	closer  []io.Closer
}

// openInput opens name, or stdin for "-". A non-empty forced charset skips
// detection.
func openInput(name string, stdin io.Reader, forced string) (*input, error) {
	in := &input{name: name}
	var raw io.Reader
	if name == Stdin {
		raw = stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		in.closer = append(in.closer, f)
		raw = f
	}

	br := bufio.NewReader(raw)
	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		in.Close()
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if mimetype.Detect(head).Is("application/gzip") {
		gz, err := gzip.NewReader(br)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
		}
		in.closer = append(in.closer, gz)
		br = bufio.NewReader(gz)
		head, _ = br.Peek(sniffSize)
	}

	in.charset = strings.ToLower(forced)
	if in.charset == "" {
		in.charset = detectCharset(head)
	}
	if in.charset != UTF8 {
		enc, canonical := charset.Lookup(in.charset)
		if enc == nil {
			in.Close()
			return nil, fmt.Errorf("unsupported charset %q for %s", in.charset, name)
		}
		in.charset = canonical
		br = bufio.NewReader(enc.NewDecoder().Reader(br))
	}
	in.reader = br
	return in, nil
}

// detectCharset guesses the encoding of head. Valid UTF-8, which includes
// plain ASCII, is never second-guessed.
func detectCharset(head []byte) string {
	for cut := 0; cut < utf8.UTFMax && cut <= len(head); cut++ {
		if utf8.Valid(head[:len(head)-cut]) {
			return UTF8
		}
	}
	result, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil || result == nil {
		return UTF8
	}
	return strings.ToLower(result.Charset)
}

// Close releases the underlying file handles.
func (in *input) Close() error {
	var first error
	for i := len(in.closer) - 1; i >= 0; i-- {
		if err := in.closer[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	in.closer = nil
	return first
}
