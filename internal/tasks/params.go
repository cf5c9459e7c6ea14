package tasks

import (
	"strconv"
	"strings"
)

// 参数来源有 yaml（int）、sys_jobs 的 JSON（float64）和 HTTP 手动触发（string），统一在这里转换

func IntParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// StringsParam 支持 []string、[]any 和逗号分隔字符串
func StringsParam(params map[string]any, key string, def []string) []string {
	var out []string
	switch v := params[key].(type) {
	case []string:
		out = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
