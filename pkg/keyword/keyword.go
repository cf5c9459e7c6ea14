// Package keyword 基于 importcjj/sensitive 的 trie 做子串关键词匹配
package keyword

import (
	"strings"

	"github.com/importcjj/sensitive"
)

// Matcher 一组关键词的匹配器，大小写不敏感，匹配语义为普通子串包含
type Matcher struct {
	filter *sensitive.Filter
	words  []string
}

// New 构建匹配器，关键词统一转小写，空词忽略
func New(words ...string) *Matcher {
	filter := sensitive.New()
	// 默认 noise 会去掉空白和符号，这里要求原文子串匹配
	filter.UpdateNoisePattern("")

	m := &Matcher{filter: filter}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		m.words = append(m.words, w)
		filter.AddWord(w)
	}
	return m
}

// Match 返回是否命中以及命中的第一个关键词
func (m *Matcher) Match(text string) (bool, string) {
	if len(m.words) == 0 || text == "" {
		return false, ""
	}
	return m.filter.FindIn(strings.ToLower(text))
}

// FindAll 返回所有命中的关键词
func (m *Matcher) FindAll(text string) []string {
	if len(m.words) == 0 || text == "" {
		return nil
	}
	return m.filter.FindAll(strings.ToLower(text))
}

func (m *Matcher) Words() []string {
	out := make([]string, len(m.words))
	copy(out, m.words)
	return out
}
