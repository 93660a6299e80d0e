// Package loader reads delimited text and spreadsheet files into a table.Table
// with an explicit schema, and writes tables back out as CSV.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// ErrUnsupported indicates a file format no loader accepts.
var ErrUnsupported = errors.New("unsupported file format")

// Options tune how a file is read.
type Options struct {
	// Delimiter for text files; 0 sniffs it from the header line.
	Delimiter rune
	// Sheet selects a workbook sheet by name; SheetIndex is 1-based and used
	// when Sheet is empty. Both zero means the first sheet.
	Sheet      string
	SheetIndex int
	// Types forces the kind of the listed columns instead of detecting it.
	Types table.Schema
	// MaxRows keeps only the first rows of the file when positive.
	MaxRows int
}

// Loader reads one family of file formats.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt Options) (*table.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Load picks a loader by file name and reads path into a table.
func Load(path string, opt Options) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			t, err := l.Load(path, opt)
			if err != nil {
				return nil, err
			}
			if opt.MaxRows > 0 && t.Rows() > opt.MaxRows {
				t = t.Subset(firstN(opt.MaxRows))
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(path))
}

// Supported reports whether some loader accepts path.
func Supported(path string) bool {
	for _, l := range registry {
		if l.CanLoad(path) {
			return true
		}
	}
	return false
}

func firstN(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
