package businessflow

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\ufeff"

// csvRecord is one data row keyed by lowercased header name
type csvRecord struct {
	Line   int
	Fields map[string]string
}

func (r csvRecord) get(key string) string {
	return r.Fields[key]
}

// readCSVRecords reads a header row and then every data row. Header names are trimmed and
// lowercased; cell values are trimmed and NFC-normalized. Blank lines are dropped.
func readCSVRecords(r io.Reader, required ...string) ([]csvRecord, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		columns[i] = strings.ToLower(strings.TrimSpace(h))
		present[columns[i]] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, ErrCSVMissingNameColumn
		}
	}

	var records []csvRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		fields := make(map[string]string, len(columns))
		blank := true
		for i, value := range row {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			value = norm.NFC.String(strings.TrimSpace(value))
			if value != "" {
				blank = false
			}
			fields[columns[i]] = value
		}
		if blank {
			continue
		}
		records = append(records, csvRecord{Line: line, Fields: fields})
	}

	if len(records) == 0 {
		return nil, ErrEmptyCSV
	}
	return records, nil
}

// writeCSV writes a header and rows, flushing before it returns
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}
