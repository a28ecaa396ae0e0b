package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"compsystem/internal/model"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat 只支持 .xlsx / .xlsm / .csv
var ErrUnsupportedFormat = errors.New("unsupported file type, upload .xlsx or .csv")

// ReadRows 读取第一个工作表，第一行非空行作为表头，之后每行转成 表头 -> 单元格 的映射。
// 全空的行直接跳过。
func ReadRows(filename string, r io.Reader) ([]model.ImportRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readXLSX(r io.Reader) ([]model.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	// RawCellValue 保留单元格原值，避免数字格式把手机号变成科学计数法
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return toImportRows(rows), nil
}

func readCSV(r io.Reader) ([]model.ImportRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	// Excel 另存为 CSV 时会带 UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	return toImportRows(rows), nil
}

func toImportRows(rows [][]string) []model.ImportRow {
	var (
		header []string
		result []model.ImportRow
	)
	for _, cells := range rows {
		if isBlank(cells) {
			continue
		}
		if header == nil {
			header = make([]string, len(cells))
			for i, h := range cells {
				header[i] = model.HeaderKey(h)
			}
			continue
		}

		row := make(model.ImportRow, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if _, seen := row[h]; seen {
				// 重复表头（忽略大小写）只取最左边一列
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = nil
			}
		}
		result = append(result, row)
	}
	return result
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
