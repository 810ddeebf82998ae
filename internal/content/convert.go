package content

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ConvertConfig describes a spreadsheet holding one deck
type ConvertConfig struct {
	FilePath  string // .xlsx or .csv file
	SheetName string // Sheet to read from a workbook; the first sheet when empty
	IDColumn  string // Header of the identifier column; rows are numbered when absent
}

// DefaultConvertConfig returns the default conversion settings
func DefaultConvertConfig() ConvertConfig {
	return ConvertConfig{IDColumn: "id"}
}

// ConvertResult holds a converted deck and the rows that were dropped
type ConvertResult struct {
	Document Document
	Skipped  int
	Errors   []string
}

// Convert reads a spreadsheet whose first row names the item fields and
// turns every following row into a deck item
func Convert(config ConvertConfig) (*ConvertResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))

	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".csv":
		rows, err = readCSV(config.FilePath)
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(config.FilePath, config.SheetName)
	default:
		return nil, errors.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("spreadsheet has no header row")
	}

	return convertRows(rows, config.IDColumn), nil
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	return parseCSV(file)
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse CSV")
	}
	return rows, nil
}

func convertRows(rows [][]string, idColumn string) *ConvertResult {
	header := make([]string, len(rows[0]))
	idIndex := -1
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
		if idColumn != "" && strings.EqualFold(header[i], idColumn) {
			idIndex = i
		}
	}

	result := &ConvertResult{Document: Document{Items: []json.RawMessage{}}, Errors: []string{}}
	seen := make(map[string]bool)

	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			result.Skipped++
			continue
		}

		item := make(map[string]any, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			item[name] = strings.TrimSpace(row[i])
		}

		id := strconv.Itoa(line - 1)
		if idIndex >= 0 {
			if idIndex >= len(row) || strings.TrimSpace(row[idIndex]) == "" {
				result.Skipped++
				result.Errors = append(result.Errors, "row "+strconv.Itoa(line)+": missing id")
				continue
			}
			id = strings.TrimSpace(row[idIndex])
			delete(item, header[idIndex])
		}
		if seen[id] {
			result.Skipped++
			result.Errors = append(result.Errors, "row "+strconv.Itoa(line)+": duplicate id "+id)
			continue
		}
		seen[id] = true
		item["id"] = id

		raw, err := json.Marshal(item)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, "row "+strconv.Itoa(line)+": "+err.Error())
			continue
		}
		result.Document.Items = append(result.Document.Items, raw)
	}
	return result
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
