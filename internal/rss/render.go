// Package rss serializes bookmarks into an RSS 2.0 document. Every string that
// comes from upstream is placed in a CDATA section and passed through Escape.
package rss

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
)

// ContentType is served with rendered feeds. text/xml rather than
// application/rss+xml so browsers display the feed instead of downloading it.
const ContentType = "text/xml; charset=utf-8"

const header = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:wfw="http://wellformedweb.org/CommentAPI/"
	xmlns:dc="http://purl.org/dc/elements/1.1/"
	xmlns:atom="http://www.w3.org/2005/Atom"
	xmlns:sy="http://purl.org/rss/1.0/modules/syndication/"
	xmlns:slash="http://purl.org/rss/1.0/modules/slash/">
<channel>
<title>Mastodon Bookmarks</title>
<description></description>
`

const footer = "</channel>\n</rss>\n"

// Options tweaks a render.
type Options struct {
	// Client adds an "Open in" link to every item when set.
	Client *Client
}

// Render builds the feed for bookmarks fetched from host, in the given order.
// The document is returned only once complete; a bookmark whose created_at is
// not RFC 3339 fails the whole render with domain.ErrTimestampInvalid.
func Render(host string, bookmarks []domain.Bookmark, opts Options) (string, error) {
	var b strings.Builder
	b.Grow(len(header) + len(bookmarks)*1024)

	b.WriteString(header)
	b.WriteString("<link>")
	cdata(&b, "https://"+host)
	b.WriteString("</link>\n")

	for i := range bookmarks {
		if err := writeItem(&b, host, bookmarks[i], opts); err != nil {
			return "", err
		}
	}

	b.WriteString(footer)
	return b.String(), nil
}

func writeItem(b *strings.Builder, host string, bm domain.Bookmark, opts Options) error {
	published, err := pubDate(bm.CreatedAt)
	if err != nil {
		return err
	}

	link, title := bm.URL, bm.URL
	if bm.Card != nil {
		link, title = bm.Card.URL, bm.Card.Title
	}

	b.WriteString("<item>\n")

	b.WriteString("<pubDate>")
	b.WriteString(published)
	b.WriteString("</pubDate>\n")

	element(b, "guid", bm.URL)
	element(b, "link", link)
	element(b, "title", title)

	if bm.Account != nil {
		element(b, "dc:creator", "@"+bm.Account.Username)
	}
	if bm.Card != nil && bm.Card.Description != "" {
		element(b, "description", bm.Card.Description)
	}

	element(b, "content:encoded", content(host, bm, opts))

	b.WriteString("</item>\n")
	return nil
}

func element(b *strings.Builder, name, value string) {
	b.WriteString("<")
	b.WriteString(name)
	b.WriteString(">")
	cdata(b, value)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}

// content is the HTML body of an item, before escaping.
func content(host string, bm domain.Bookmark, opts Options) string {
	var c strings.Builder
	c.WriteString(`<p><a href="`)
	c.WriteString(bm.URL)
	c.WriteString(`">Original Mastodon Post</a></p>`)

	if opts.Client != nil {
		if href := opts.Client.Link(host, bm); href != "" {
			fmt.Fprintf(&c, `<p><a href="%s">Open in %s</a></p>`, href, opts.Client.Label)
		}
	}

	c.WriteString(bm.Content)
	return c.String()
}

// pubDate reformats an RFC 3339 timestamp as RFC 1123 with numeric zone,
// keeping the original offset.
func pubDate(createdAt string) (string, error) {
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", domain.ErrTimestampInvalid, createdAt, err)
	}
	return t.Format(time.RFC1123Z), nil
}
