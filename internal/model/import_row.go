package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ImportRow 表格中的一行：表头 -> 原始单元格值
type ImportRow map[string]any

// HeaderKey 表头的比较形式：去掉首尾空白并转小写
func HeaderKey(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// Cell 依次尝试候选表头，返回第一个存在且非空的单元格文本。
// 表头比较忽略首尾空白和大小写；同名表头按字典序取第一个。
func (r ImportRow) Cell(candidates ...string) string {
	headers := make([]string, 0, len(r))
	for h := range r {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	for _, name := range candidates {
		key := HeaderKey(name)
		for _, header := range headers {
			if HeaderKey(header) != key {
				continue
			}
			if v := strings.TrimSpace(CellText(r[header])); v != "" {
				return v
			}
		}
	}
	return ""
}

// CellText 把弱类型单元格转成文本
func CellText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
