// Package output names and writes per-query result files.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/usestring/places-text/pkg/flatten"
)

// Format is an output serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatBoth Format = "both"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatBoth:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want csv, json or both)", s)
}

// Formats expands FormatBoth into its concrete formats.
func (f Format) Formats() []Format {
	if f == FormatBoth {
		return []Format{FormatCSV, FormatJSON}
	}
	return []Format{f}
}

// TimestampLayout is the second-resolution stamp used in file names.
const TimestampLayout = "20060102_150405"

const (
	filePrefix    = "places_text_"
	slugSeparator = '_'
	maxSlugRunes  = 80
	emptySlug     = "query"
)

// Filename returns places_text_<slug>_<YYYYMMDD_HHMMSS>.<ext>.
func Filename(query string, format Format, ts time.Time) string {
	return fmt.Sprintf("%s%s_%s.%s", filePrefix, Slugify(query), ts.Format(TimestampLayout), format)
}

// stripMarks removes combining marks after canonical decomposition,
// so "café" becomes "cafe".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases s and collapses every run of characters that are not
// letters or digits into a single underscore.
func Slugify(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	pendingSep := false
	n := 0
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if n >= maxSlugRunes {
			break
		}
		if pendingSep {
			if n+1 >= maxSlugRunes {
				break
			}
			b.WriteRune(slugSeparator)
			n++
			pendingSep = false
		}
		b.WriteRune(r)
		n++
	}

	if b.Len() == 0 {
		return emptySlug
	}
	return b.String()
}

// IOWriteError reports a failure creating or writing an output file.
type IOWriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOWriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOWriteError) Unwrap() error {
	return e.Err
}

// Writer writes result files into Dir.
type Writer struct {
	Dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// WriteCSV writes table as UTF-8 CSV with a header row and returns the path.
func (w *Writer) WriteCSV(query string, table *flatten.Table, ts time.Time) (string, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(table.Columns); err != nil {
		return "", &IOWriteError{Op: "encode", Path: w.path(query, FormatCSV, ts), Err: err}
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return "", &IOWriteError{Op: "encode", Path: w.path(query, FormatCSV, ts), Err: err}
	}
	return w.write(query, FormatCSV, ts, buf.Bytes())
}

// WriteJSON writes records as an indented JSON array and returns the path.
// Records keep their original nesting.
func (w *Writer) WriteJSON(query string, records []map[string]any, ts time.Time) (string, error) {
	if records == nil {
		records = []map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", &IOWriteError{Op: "encode", Path: w.path(query, FormatJSON, ts), Err: err}
	}
	return w.write(query, FormatJSON, ts, buf.Bytes())
}

// maxNameAttempts bounds the numeric suffixes tried when names collide.
const maxNameAttempts = 1000

func (w *Writer) path(query string, format Format, ts time.Time) string {
	return filepath.Join(w.Dir, Filename(query, format, ts))
}

// write creates a new file and never replaces an existing one. When the
// name is taken, e.g. two queries with the same slug in the same second,
// _2, _3, ... is appended before the extension.
func (w *Writer) write(query string, format Format, ts time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", &IOWriteError{Op: "create directory", Path: w.Dir, Err: err}
	}

	for n := 1; n <= maxNameAttempts; n++ {
		path := filepath.Join(w.Dir, numberedFilename(query, format, ts, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &IOWriteError{Op: "create", Path: path, Err: err}
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", &IOWriteError{Op: "write", Path: path, Err: err}
		}
		if err := f.Close(); err != nil {
			return "", &IOWriteError{Op: "write", Path: path, Err: err}
		}
		return path, nil
	}
	return "", &IOWriteError{Op: "create", Path: w.path(query, format, ts), Err: fs.ErrExist}
}

// numberedFilename is Filename for n == 1 and adds _<n> otherwise.
func numberedFilename(query string, format Format, ts time.Time, n int) string {
	if n == 1 {
		return Filename(query, format, ts)
	}
	return fmt.Sprintf("%s%s_%s_%d.%s", filePrefix, Slugify(query), ts.Format(TimestampLayout), n, format)
}
