package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"linkedin-pipeline/internal/domain"
)

func feedXML(now time.Time) string {
	recent := now.Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := now.Add(-48 * time.Hour).Format(time.RFC1123Z)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
<title>Feed</title>
<item>
<title> AI startup raises new funding </title>
<link>https://example.com/ai-funding</link>
<description><![CDATA[<p>The <b>startup</b> closed a new round.</p>]]></description>
<dc:creator>Jane Reporter</dc:creator>
<pubDate>%s</pubDate>
<category>Startups</category>
</item>
<item>
<title>Old software release</title>
<link>https://example.com/old</link>
<description>Legacy software update.</description>
<pubDate>%s</pubDate>
</item>
<item>
<title>Best flowers to grow</title>
<link>https://example.com/flowers</link>
<description>Enjoy your garden.</description>
<pubDate>%s</pubDate>
</item>
</channel>
</rss>`, recent, stale, recent)
}

func TestFetchRecentFiltersByAgeAndRelevance(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML(now)))
	}))
	defer srv.Close()

	source := NewRSSSource(srv.Client(), map[string]string{"techcrunch": srv.URL}, zerolog.Nop())
	articles, err := source.FetchRecent(context.Background(), "techcrunch", 24)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("старые и нерелевантные статьи должны отсеиваться, получили %d", len(articles))
	}

	article := articles[0]
	if article.Title != "AI startup raises new funding" {
		t.Fatalf("заголовок должен быть обрезан по пробелам, получили %q", article.Title)
	}
	if article.Summary != "The startup closed a new round." {
		t.Fatalf("HTML в описании должен удаляться, получили %q", article.Summary)
	}
	if article.Author != "Jane Reporter" {
		t.Fatalf("ожидали автора из dc:creator, получили %q", article.Author)
	}
	if article.Source != "techcrunch" {
		t.Fatalf("источник должен нормализоваться, получили %q", article.Source)
	}
	if len(article.Tags) != 1 || article.Tags[0] != "Startups" {
		t.Fatalf("категории должны переноситься в теги, получили %v", article.Tags)
	}
}

func TestFetchRecentUnknownSource(t *testing.T) {
	source := NewRSSSource(nil, map[string]string{"techcrunch": "http://localhost"}, zerolog.Nop())
	if _, err := source.FetchRecent(context.Background(), "unknown", 24); err == nil {
		t.Fatalf("неизвестный источник должен быть ошибкой")
	}
}

func TestFetchRecentBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := NewRSSSource(srv.Client(), map[string]string{"techcrunch": srv.URL}, zerolog.Nop())
	if _, err := source.FetchRecent(context.Background(), "techcrunch", 24); err == nil {
		t.Fatalf("ответ 500 должен быть ошибкой")
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := []string{
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
	}
	for _, raw := range cases {
		if _, err := parseDate(raw); err != nil {
			t.Fatalf("дата %q должна разбираться: %v", raw, err)
		}
	}
	if _, err := parseDate("not a date"); err == nil {
		t.Fatalf("мусор не должен разбираться как дата")
	}
	if _, err := parseDate(""); err == nil {
		t.Fatalf("пустая дата должна быть ошибкой")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello <a href=\"#\">world</a></p>")
	if got != "Hello world" {
		t.Fatalf("ожидали плоский текст, получили %q", got)
	}
	if got := stripHTML("  plain  "); got != "plain" {
		t.Fatalf("текст без разметки должен просто обрезаться, получили %q", got)
	}
}

func stubArticle(title, summary string) domain.Article {
	return domain.Article{Title: title, Summary: summary}
}

func TestIsTechRelevant(t *testing.T) {
	tech := stubArticle("Cloud platform update", "New features for developers")
	if !isTechRelevant(tech) {
		t.Fatalf("технологическая статья должна проходить фильтр")
	}
	garden := stubArticle("Best flowers to grow", "Enjoy your garden")
	if isTechRelevant(garden) {
		t.Fatalf("нерелевантная статья не должна проходить фильтр")
	}
}
