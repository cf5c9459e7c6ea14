package ingest

import (
	"strings"

	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/keyword"
)

// keywordTable 声明顺序即优先级：同时命中两个分类时，靠前的胜出
var keywordTable = []struct {
	slug  string
	words []string
}{
	{"technology", []string{"tech", "software", "ai", "computer", "digital", "app", "startup"}},
	{"business", []string{"business", "economy", "finance", "market", "stock", "investment"}},
	{"sports", []string{"sport", "game", "player", "team", "championship", "athlete"}},
	{"health", []string{"health", "medical", "doctor", "disease", "treatment", "fitness"}},
	{"science", []string{"science", "research", "study", "scientist", "discovery"}},
	{"entertainment", []string{"movie", "film", "music", "celebrity", "entertainment", "actor"}},
}

type rule struct {
	slug    string
	matcher *keyword.Matcher
}

// 匹配器构建后只读，可在多个 goroutine 间共享
var rules = func() []rule {
	out := make([]rule, 0, len(keywordTable))
	for _, row := range keywordTable {
		out = append(out, rule{slug: row.slug, matcher: keyword.New(row.words...)})
	}
	return out
}()

// Classifier 关键词子串分类
//
// 这是一个近似的启发式：没有置信度，也不学习。"ai" 这样的短词会命中
// "said"、"maintain" 之类的单词，结果偏向 technology。
type Classifier struct {
	bySlug   map[string]*objects.Category
	fallback *objects.Category
}

// NewClassifier reference 为分类参考集合；关键词命中的分类必须存在于其中才算数
// 都不命中时回落到 defaultSlug，defaultSlug 也不存在则取参考集合的第一个
func NewClassifier(reference []objects.Category, defaultSlug string) *Classifier {
	c := &Classifier{bySlug: make(map[string]*objects.Category, len(reference))}
	for i := range reference {
		cat := &reference[i]
		if _, ok := c.bySlug[cat.Slug]; !ok {
			c.bySlug[cat.Slug] = cat
		}
	}
	if cat, ok := c.bySlug[defaultSlug]; ok {
		c.fallback = cat
	} else if len(reference) > 0 {
		c.fallback = &reference[0]
	}
	return c
}

// Classify 参考集合为空时返回 nil
func (c *Classifier) Classify(text string) *objects.Category {
	lower := strings.ToLower(text)
	for _, r := range rules {
		cat, ok := c.bySlug[r.slug]
		if !ok {
			continue
		}
		if hit, _ := r.matcher.Match(lower); hit {
			return cat
		}
	}
	return c.fallback
}
