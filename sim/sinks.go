package sim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// Sink persists one consolidated table for the given simulation year.
// Implementations own the file format and path layout; callers only route
// tables through them.
type Sink func(table Frame, year int) error

// SinkFactory resolves an output specification into a bound Sink. The
// sector name labels the output files ("Cache" for the output cache).
type SinkFactory func(params OutputParams, sectorName string) (Sink, error)

// SinkWriter serializes a table to a stream in one storage format.
type SinkWriter func(w io.Writer, table Frame) error

// DefaultFilenameTemplate is the output path used when a specification does
// not carry its own filename.
const DefaultFilenameTemplate = "{default_output_dir}/{Sector}{year}{Quantity}{Suffix}"

type sinkKind struct {
	write  SinkWriter
	suffix string // file extension including the dot
}

var sinkKinds = map[string]sinkKind{}

func init() {
	if err := RegisterSink("csv", ".csv", func(w io.Writer, table Frame) error {
		return table.Data.WriteCSV(w)
	}); err != nil {
		panic(err)
	}
	if err := RegisterSink("json", ".json", func(w io.Writer, table Frame) error {
		return table.Data.WriteJSON(w)
	}); err != nil {
		panic(err)
	}
}

// RegisterSink adds a storage format under name, with the filename suffix
// substituted for the {suffix} marker. Duplicate names fail.
func RegisterSink(name, suffix string, write SinkWriter) error {
	if _, ok := sinkKinds[name]; ok {
		return fmt.Errorf("sink %q already registered", name)
	}
	sinkKinds[name] = sinkKind{write: write, suffix: suffix}
	return nil
}

// HasSink reports whether a storage format is registered under name.
func HasSink(name string) bool {
	_, ok := sinkKinds[name]
	return ok
}

// sinkName resolves the storage format for a specification: the explicit
// sink key, else the filename extension, else csv.
func sinkName(params OutputParams) string {
	if params.Sink != "" {
		return params.Sink
	}
	if ext := strings.TrimPrefix(filepath.Ext(params.Filename), "."); ext != "" {
		if HasSink(ext) {
			return ext
		}
	}
	return "csv"
}

// ExpandFilename substitutes the path template markers:
// {cwd}, {default_output_dir}, {sector}, {Sector}, {year}, {quantity},
// {Quantity} and {suffix}. Capitalized variants upper-case the first rune.
func ExpandFilename(template, outputDir, sector, quantity, suffix string, year int) string {
	if outputDir == "" {
		outputDir = "."
	}
	return strings.NewReplacer(
		"{cwd}", ".",
		"{default_output_dir}", outputDir,
		"{sector}", sector,
		"{Sector}", capitalize(sector),
		"{year}", strconv.Itoa(year),
		"{quantity}", quantity,
		"{Quantity}", capitalize(quantity),
		"{suffix}", suffix,
		"{Suffix}", suffix,
	).Replace(template)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NewSink is the default SinkFactory. It binds the specification's storage
// format and filename template into a callable that expands the path for
// the flushed year, refuses to clobber existing files unless overwrite is
// set, and serializes the table.
func NewSink(params OutputParams, sectorName string) (Sink, error) {
	name := sinkName(params)
	kind, ok := sinkKinds[name]
	if !ok {
		return nil, fmt.Errorf("unknown sink %q for quantity %q", name, params.Quantity.Name)
	}

	template := params.Filename
	if template == "" {
		template = DefaultFilenameTemplate
	}
	quantity := params.Quantity.Name
	outputDir := params.OutputDir
	overwrite := params.Overwrite

	return func(table Frame, year int) error {
		path := ExpandFilename(template, outputDir, sectorName, quantity, kind.suffix, year)
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("output file %q already exists (set overwrite to replace it)", path)
			}
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		if err := kind.write(file, table); err != nil {
			return fmt.Errorf("writing %s output for %q: %w", name, quantity, err)
		}
		logrus.Debugf("sink: wrote %q (%d rows) for year %d", path, table.Nrow(), year)
		return nil
	}, nil
}
