package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
	"github.com/KaramelBytes/solarstat-cli/internal/utils"
)

type csvLoader struct{}

func (csvLoader) CanLoad(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvLoader) Load(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, path, opt)
}

// ReadCSV parses delimited text from r. name is only used to pick a default
// delimiter from the extension. A UTF-8 or UTF-16 byte order mark is stripped.
func ReadCSV(r io.Reader, name string, opt Options) (*table.Table, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = sniffDelimiter(name, head)
	}
	df := dataframe.ReadCSV(br, loadOptions(delim, opt.Types)...)
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}
	return fromDataFrame(df, opt.Types)
}

// sniffDelimiter picks the delimiter for a text file: tab for .tsv files,
// otherwise whichever of , ; \t | occurs most often in the header line.
func sniffDelimiter(name string, head []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(string(head), string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// WriteCSV writes t with a header row. Nulls are written as empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	df := toDataFrame(t)
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes t to path atomically.
func WriteCSVFile(path string, t *table.Table) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
