package summary

import (
	"context"
	"strings"
)

type topicTemplate struct {
	topic    string
	template string
}

// 按声明顺序匹配标题
var topicTemplates = []topicTemplate{
	{"technology", "This article discusses recent technological advancements and their impact on the industry."},
	{"business", "The article examines business trends and economic developments affecting markets."},
	{"sports", "This piece covers recent sporting events and athlete performances."},
	{"health", "The article explores health research findings and wellness recommendations."},
	{"science", "This piece delves into scientific discoveries and research breakthroughs."},
	{"entertainment", "The article reviews entertainment news and cultural developments."},
}

const defaultTemplate = "This article provides insights and analysis on current events and developments in the field."

// Mock 模板摘要，确定性输出
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) GenerateSummary(_ context.Context, title, _ string) (string, error) {
	lower := strings.ToLower(title)
	summary := defaultTemplate
	for _, t := range topicTemplates {
		if strings.Contains(lower, t.topic) {
			summary = t.template
			break
		}
	}

	words := strings.Split(title, " ")
	if len(words) > 5 {
		words = words[:5]
	}
	return summary + " Key topics include: " + strings.Join(words, ", ") + ".", nil
}
