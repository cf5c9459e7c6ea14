package ingest

import (
	"testing"

	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refCategories(slugs ...string) []objects.Category {
	out := make([]objects.Category, 0, len(slugs))
	for i, s := range slugs {
		out = append(out, objects.Category{ID: uint64(i + 1), Slug: s, Name: s, IsActive: true})
	}
	return out
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(refCategories("technology", "business", "sports", "health", "science", "entertainment"), "technology")

	cases := []struct {
		text string
		want string
	}{
		{"Young Athlete Signs Historic Contract Rising star", "sports"},
		{"New Study Links Exercise to Improved Mental Health", "health"},
		{"Blockbuster Film Breaks Box Office Records", "entertainment"},
		{"Stock MARKET rallies", "business"},
		{"Scientists Discover New Earth-Like Exoplanet", "science"},
		// 同时命中 technology 和 business，靠前的 technology 胜出
		{"Tech stocks lead the market", "technology"},
		{"Quiet weekend ahead", "technology"},
	}
	for _, tc := range cases {
		got := c.Classify(tc.text)
		require.NotNil(t, got, tc.text)
		assert.Equal(t, tc.want, got.Slug, tc.text)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(refCategories("technology", "sports"), "technology")
	first := c.Classify("Championship team wins the final")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Classify("Championship team wins the final"))
	}
	assert.Equal(t, "sports", first.Slug)
}

func TestClassifier_SkipsMissingCategories(t *testing.T) {
	// technology 不在参考集合里，继续往后找
	c := NewClassifier(refCategories("business", "sports"), "technology")
	assert.Equal(t, "sports", c.Classify("software team").Slug)

	// 没有命中且默认分类不存在，取第一个
	assert.Equal(t, "business", c.Classify("software release").Slug)
}

func TestClassifier_EmptyReference(t *testing.T) {
	c := NewClassifier(nil, "technology")
	assert.Nil(t, c.Classify("tech"))
}
