package news

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/pkg/logger"
	"github.com/iceymoss/newsfeed/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// RSS 按分类配置的 RSS/Atom 源抓取
type RSS struct {
	feeds  map[string][]string
	parser *gofeed.Parser
	log    *zap.Logger
}

func NewRSS(feeds map[string][]string, client *http.Client, log *zap.Logger) *RSS {
	fp := gofeed.NewParser()
	if client != nil {
		fp.Client = client
	}
	if log == nil {
		log = logger.Named("rss")
	}
	return &RSS{feeds: feeds, parser: fp, log: log}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) FetchNews(ctx context.Context, categories []CategoryRef, limit int) (*Result, error) {
	per := utils.CeilDiv(limit, len(categories))
	var all []RawArticle

	for _, c := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var got []RawArticle
		for _, feedURL := range r.feeds[c.Slug] {
			if len(got) >= per {
				break
			}
			// 🕷️ 单个 feed 失败不影响其他分类
			feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
			if err != nil {
				r.log.Error("❌ [RSS] feed parse failed",
					zap.String("category", c.Slug), zap.String("feed", feedURL), zap.Error(err))
				continue
			}
			for _, item := range feed.Items {
				if len(got) >= per {
					break
				}
				got = append(got, fromItem(feed, item))
			}
		}
		all = append(all, got...)
	}

	total := len(all)
	return &Result{Status: StatusOK, TotalResults: total, Articles: truncate(all, limit)}, nil
}

func fromItem(feed *gofeed.Feed, item *gofeed.Item) RawArticle {
	a := RawArticle{
		Source: RawSource{Name: strings.TrimSpace(feed.Title)},
		Title:  strings.TrimSpace(item.Title),
		URL:    strings.TrimSpace(item.Link),
	}
	if desc := plainText(item.Description); desc != "" {
		a.Description = strPtr(desc)
	}
	if content := plainText(item.Content); content != "" {
		a.Content = strPtr(content)
	}
	if author := itemAuthor(item); author != "" {
		a.Author = strPtr(author)
	}
	if item.Image != nil && item.Image.URL != "" {
		a.URLToImage = strPtr(item.Image.URL)
	} else if len(item.Enclosures) > 0 && strings.HasPrefix(item.Enclosures[0].Type, "image/") {
		a.URLToImage = strPtr(item.Enclosures[0].URL)
	}
	switch {
	case item.PublishedParsed != nil:
		a.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		a.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return a
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	return ""
}

// plainText 去掉 feed 里的 html 标签，合并空白
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
