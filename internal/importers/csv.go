package importers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// CSVSource reads items from a CSV export whose first row names the fields.
// Every cell becomes a text field keyed by its trimmed header.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Items re-opens the file on every range, so the sequence is restartable.
// Rows that cannot be parsed are yielded as *RowError and the read goes on.
func (s *CSVSource) Items(ctx context.Context) iter.Seq2[entities.SourceItem, error] {
	return func(yield func(entities.SourceItem, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(entities.SourceItem{}, errors.Wrapf(err, "open %s", s.path))
			return
		}
		defer f.Close()

		rows, err := readCSV(f)
		if err != nil {
			yield(entities.SourceItem{}, errors.Wrapf(err, "parse %s", s.path))
			return
		}

		for item, err := range rows {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(entities.SourceItem{}, ctxErr)
				return
			}
			if !yield(item, err) {
				return
			}
		}
	}
}

// ParseCSV parses a CSV export. An "id" column provides item ids; otherwise
// the line number is used. Returns the parsed items, the rows that could not
// be parsed, and a fatal error if the header cannot be read. Rows without any
// value are ignored.
func ParseCSV(r io.Reader) ([]entities.SourceItem, []*RowError, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}

	var items []entities.SourceItem
	var problems []*RowError
	for item, err := range rows {
		if err == nil {
			items = append(items, item)
			continue
		}
		var rowErr *RowError
		if !errors.As(err, &rowErr) {
			return items, problems, err
		}
		problems = append(problems, rowErr)
	}
	return items, problems, nil
}

// readCSV reads the header and returns a sequence over the data rows.
// Malformed rows are yielded as *RowError; any other error ends the sequence.
func readCSV(r io.Reader) (iter.Seq2[entities.SourceItem, error], error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	// Build header index map
	headers := make([]string, 0, len(header))
	headerIndex := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		if _, dup := headerIndex[h]; dup {
			return nil, errors.Newf("duplicate header: %s", h)
		}
		headerIndex[h] = i
		headers = append(headers, h)
	}
	if len(headers) == 0 {
		return nil, errors.New("header row is empty")
	}

	idColumn := ""
	for _, h := range headers {
		if strings.EqualFold(h, "id") {
			idColumn = h
			break
		}
	}

	return func(yield func(entities.SourceItem, error) bool) {
		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					yield(entities.SourceItem{}, errors.Wrap(err, "read row"))
					return
				}
				rowErr := &RowError{SourceID: fmt.Sprintf("line-%d", parseErr.StartLine), Err: err}
				if !yield(entities.SourceItem{}, rowErr) {
					return
				}
				continue
			}
			line, _ := reader.FieldPos(0)

			fieldData := make(map[string]any, len(headers))
			empty := true
			for _, h := range headers {
				value := getCSVValue(record, headerIndex, h)
				if value != "" {
					empty = false
				}
				fieldData[h] = value
			}
			if empty {
				continue
			}

			id := ""
			if idColumn != "" {
				id, _ = fieldData[idColumn].(string)
			}
			if id == "" {
				id = fmt.Sprintf("line-%d", line)
			}

			if !yield(entities.SourceItem{ID: id, FieldData: fieldData}, nil) {
				return
			}
		}
	}, nil
}

func getCSVValue(record []string, headerIndex map[string]int, header string) string {
	if idx, ok := headerIndex[header]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

var _ Source = (*CSVSource)(nil)
var _ Source = (*WebflowSource)(nil)
