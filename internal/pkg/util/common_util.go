package util

import "unicode/utf8"

const truncatedSuffix = "...[truncated]"

// Truncate 截断过长的日志内容，保证不截断多字节字符
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedSuffix
}
