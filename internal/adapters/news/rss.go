package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/infra/metrics"
)

// Зарегистрированные RSS-ленты по имени источника.
var defaultFeeds = map[string]string{
	"techcrunch": "https://techcrunch.com/feed/",
}

var techKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "startup", "funding",
	"software", "technology", "tech", "programming", "developer", "cloud",
	"cybersecurity", "blockchain", "cryptocurrency", "fintech", "saas",
	"api", "mobile", "app", "platform", "innovation", "digital", "automation",
	"robotics", "iot", "internet of things", "big data", "analytics",
	"venture capital", "ipo", "acquisition", "merger", "enterprise",
}

// RSSSource реализует domain.ArticleSource поверх RSS 2.0 лент.
type RSSSource struct {
	client *http.Client
	feeds  map[string]string
	log    zerolog.Logger
}

var _ domain.ArticleSource = (*RSSSource)(nil)

// NewRSSSource создаёт источник статей. Пустая карта лент заменяется
// набором по умолчанию.
func NewRSSSource(client *http.Client, feeds map[string]string, logger zerolog.Logger) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	return &RSSSource{client: client, feeds: feeds, log: logger}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Creator     string   `xml:"creator"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

// FetchRecent выгружает статьи источника за последние hoursBack часов,
// оставляя только релевантные для технологической аудитории.
func (s *RSSSource) FetchRecent(ctx context.Context, source string, hoursBack int) ([]domain.Article, error) {
	feedURL, ok := s.feeds[strings.ToLower(source)]
	if !ok {
		return nil, fmt.Errorf("неизвестный источник %q", source)
	}
	if hoursBack <= 0 {
		hoursBack = 24
	}

	feed, err := s.fetchFeed(ctx, source, feedURL)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)
	articles := make([]domain.Article, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		publishedAt, err := parseDate(item.PubDate)
		if err != nil {
			s.log.Warn().Str("date", item.PubDate).Str("source", source).Msg("rss: дата публикации не разобрана")
			continue
		}
		if !publishedAt.After(cutoff) {
			continue
		}
		article := domain.Article{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			Summary:     stripHTML(item.Description),
			Author:      strings.TrimSpace(item.Creator),
			PublishedAt: publishedAt,
			Source:      strings.ToLower(source),
			Tags:        item.Categories,
		}
		if !isTechRelevant(article) {
			continue
		}
		articles = append(articles, article)
	}
	s.log.Info().Str("source", source).Int("articles", len(articles)).Msg("rss: статьи получены")
	return articles, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, source, feedURL string) (*rssFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: build request: %w", err)
	}
	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.ObserveNetworkRequest("rss", "fetch", source, start, err)
	if err != nil {
		return nil, fmt.Errorf("rss: fetch %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("rss: fetch %s: unexpected status %d", source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("rss: read body: %w", err)
	}
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("rss: decode feed: %w", err)
	}
	return &feed, nil
}

var dateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("пустая дата")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("неизвестный формат даты %q", raw)
}

// stripHTML превращает HTML-описание ленты в плоский текст.
func stripHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(doc.Text())
}

func isTechRelevant(article domain.Article) bool {
	full := strings.ToLower(article.Title + " " + article.Summary + " " + strings.Join(article.Tags, " "))
	for _, kw := range techKeywords {
		if strings.Contains(full, kw) {
			return true
		}
	}
	return false
}
