package news

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iceymoss/newsfeed/internal/conf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var twoCategories = []CategoryRef{{ID: 1, Slug: "technology"}, {ID: 2, Slug: "business"}}

func TestMock_FetchNews(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMock(WithRand(rand.New(rand.NewSource(42))), WithClock(func() time.Time { return now }))

	res, err := m.FetchNews(context.Background(), twoCategories, 6)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Articles, 6)

	seen := map[string]bool{}
	for i, a := range res.Articles {
		assert.True(t, strings.HasPrefix(a.URL, "https://example.com/article-"))
		assert.False(t, seen[a.URL], "urls must be unique")
		seen[a.URL] = true

		slug := "technology"
		if i >= 3 {
			slug = "business"
		}
		assert.Equal(t, mockImages[slug], *a.URLToImage)

		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		require.NoError(t, err)
		age := now.Sub(published)
		assert.GreaterOrEqual(t, age, time.Hour)
		assert.LessOrEqual(t, age, 48*time.Hour)

		require.NotNil(t, a.Author)
		require.NotNil(t, a.Description)
		require.NotNil(t, a.Content)
		assert.NotEmpty(t, a.Source.Name)
	}
}

func TestMock_TruncatesAndFallsBack(t *testing.T) {
	m := NewMock(WithRand(rand.New(rand.NewSource(1))))
	cats := []CategoryRef{{Slug: "technology"}, {Slug: "politics"}, {Slug: "sports"}}

	// ceil(5/3)=2 per category -> 6, truncated to 5
	res, err := m.FetchNews(context.Background(), cats, 5)
	require.NoError(t, err)
	require.Len(t, res.Articles, 5)
	assert.Equal(t, 5, res.TotalResults)

	// 未知分类使用 technology 模板
	techTitles := map[string]bool{}
	for _, tpl := range mockTemplates["technology"] {
		techTitles[tpl.title] = true
	}
	assert.True(t, techTitles[res.Articles[2].Title])
	assert.True(t, techTitles[res.Articles[3].Title])

	res, err = m.FetchNews(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Empty(t, res.Articles)
}

func TestNewsAPI_FetchNews(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apiKey"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "2", q.Get("pageSize"))
		calls = append(calls, q.Get("category"))

		if q.Get("category") == "business" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"source":{"id":null,"name":"Wired"},"author":null,"title":"One","description":"d1",
			 "url":"https://n.example/1","urlToImage":null,"publishedAt":"2026-01-01T10:00:00Z","content":"c1"},
			{"source":{"id":"bbc","name":"BBC"},"author":"A","title":"Two","description":null,
			 "url":"https://n.example/2","urlToImage":"https://img/2","publishedAt":"2026-01-01T11:00:00Z","content":null}
		]}`))
	}))
	defer srv.Close()

	n := NewNewsAPI("secret", WithBaseURL(srv.URL), WithLogger(zap.NewNop()))
	cats := []CategoryRef{{Slug: "technology"}, {Slug: "business"}, {Slug: "science"}}
	res, err := n.FetchNews(context.Background(), cats, 5)
	require.NoError(t, err)

	// business 失败不影响其他分类
	assert.Equal(t, []string{"technology", "business", "science"}, calls)
	assert.True(t, res.OK())
	require.Len(t, res.Articles, 4)
	assert.Equal(t, "Wired", res.Articles[0].Source.Name)
	assert.Nil(t, res.Articles[0].Author)
	assert.Nil(t, res.Articles[1].Description)
	assert.Equal(t, "https://img/2", *res.Articles[1].URLToImage)
}

func TestNewsAPI_TruncatesToLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"a","url":"https://n/a"},{"title":"b","url":"https://n/b"}]}`))
	}))
	defer srv.Close()

	n := NewNewsAPI("k", WithBaseURL(srv.URL), WithLogger(zap.NewNop()))
	res, err := n.FetchNews(context.Background(), twoCategories, 3)
	require.NoError(t, err)
	assert.Len(t, res.Articles, 3)
	assert.Equal(t, 4, res.TotalResults)
}

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example Wire</title>
<item><title>Chip makers rally</title><link>https://wire.example/chips</link>
<description>&lt;p&gt;Semiconductor &lt;b&gt;stocks&lt;/b&gt;   rose&lt;/p&gt;</description>
<author>desk@wire.example (Desk)</author>
<pubDate>Mon, 02 Mar 2026 09:00:00 GMT</pubDate></item>
<item><title>Second</title><link>https://wire.example/second</link></item>
<item><title>Third</title><link>https://wire.example/third</link></item>
</channel></rss>`

func TestRSS_FetchNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	r := NewRSS(map[string][]string{
		"technology": {srv.URL + "/broken", srv.URL + "/tech"},
	}, srv.Client(), zap.NewNop())

	res, err := r.FetchNews(context.Background(), []CategoryRef{{Slug: "technology"}, {Slug: "sports"}}, 4)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Articles, 2)

	first := res.Articles[0]
	assert.Equal(t, "Example Wire", first.Source.Name)
	assert.Equal(t, "https://wire.example/chips", first.URL)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Semiconductor stocks rose", *first.Description)
	assert.Equal(t, "2026-03-02T09:00:00Z", first.PublishedAt)
}

func TestNew_SelectsVariant(t *testing.T) {
	s, err := New(conf.NewsConfig{}, true, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "mock", s.Name())

	s, err = New(conf.NewsConfig{Provider: conf.ProviderNewsAPI, APIKey: "k"}, false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "newsapi", s.Name())

	s, err = New(conf.NewsConfig{Provider: conf.ProviderRSS}, false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "rss", s.Name())

	_, err = New(conf.NewsConfig{Provider: "carrier-pigeon"}, false, zap.NewNop())
	assert.Error(t, err)
}
