package document

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrDecodeFailure marks uploads that could not be turned into text.
// User-correctable; handlers map it to a bad-request response.
var ErrDecodeFailure = errors.New("unable to decode file")

// DecodeUpload converts an uploaded file into plain text. Spreadsheets are
// flattened to CSV, one sheet after another; everything else must be valid
// UTF-8. Legacy binary .xls workbooks are not supported.
func DecodeUpload(filename string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return decodeSpreadsheet(r)
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls is not supported, convert to .xlsx", ErrDecodeFailure)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrDecodeFailure, filename)
	}
	return string(raw), nil
}

func decodeSpreadsheet(r io.Reader) (string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer book.Close()

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: sheet %s: %v", ErrDecodeFailure, sheet, err)
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("flattening sheet %s: %w", sheet, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
