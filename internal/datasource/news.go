package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// yahooFeedURL is the per-ticker Yahoo Finance headline feed. The single
// %s placeholder takes the normalized ticker.
const yahooFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// News fetches per-ticker headlines from the Yahoo Finance RSS feed.
type News struct {
	feedURL string
	cache   *Cache
	limiter *RateLimiter
	parser  *gofeed.Parser
}

// NewNews creates a news client for the default Yahoo Finance feed.
func NewNews() *News {
	return NewNewsWithFeed(yahooFeedURL)
}

// NewNewsWithFeed creates a news client for a custom feed URL template
// containing one %s placeholder for the ticker.
func NewNewsWithFeed(feedURL string) *News {
	return &News{
		feedURL: feedURL,
		cache:   NewCache(10 * time.Minute),
		limiter: NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "Yahoo Finance News" }

// GetTickerNews returns recent headlines for the ticker, newest first.
// A limit of 0 returns everything the feed provides.
func (n *News) GetTickerNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	symbol := utils.NormalizeTicker(ticker)

	cacheKey := fmt.Sprintf("news:%s:%d", symbol, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(fmt.Sprintf(n.feedURL, symbol), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse news feed %s: %w", symbol, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  feedSource(feed, item),
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	sortArticlesByDate(articles)
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.cache.Set(cacheKey, articles)
	return articles, nil
}

// --- Internal helpers ---

// feedSource prefers the per-item source tag, falling back to the feed title.
func feedSource(feed *gofeed.Feed, item *gofeed.Item) string {
	if item.Custom != nil {
		if s, ok := item.Custom["source"]; ok && s != "" {
			return s
		}
	}
	return feed.Title
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// sortArticlesByDate sorts articles by published date, newest first.
func sortArticlesByDate(articles []models.NewsArticle) {
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
