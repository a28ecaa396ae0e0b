package phone

import (
	"regexp"
	"strings"
)

// MinFilterDigits 列表筛选时，电话至少要有这么多位才按精确匹配过滤，
// 避免输入到一半就查出一大片
const MinFilterDigits = 9

// 可选的前导 0，然后是 5，再跟 8 位数字
var validPattern = regexp.MustCompile(`^0?5\d{8}$`)

// Normalize 去掉所有非数字字符（整体删除，不做掩码）
// 例如："052-123 4567" -> "0521234567"
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// IsValid 校验已规范化的号码
func IsValid(normalized string) bool {
	return validPattern.MatchString(normalized)
}

// UsableForFilter 判断号码是否足够长，可以作为列表的精确过滤条件
func UsableForFilter(normalized string) bool {
	return len(normalized) >= MinFilterDigits
}
