package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	favorite "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/favorite/domain"
	listing "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/domain"
)

// Telegram rejects photo captions longer than this
const captionLimit = 1024

// Caps on single caption parts. Together they leave room for a title and
// a description under captionLimit.
const (
	titleLimit = 256
	fieldLimit = 96
	urlLimit   = 256
)

const timeLayout = "2006-01-02 15:04"

// ListingCaption renders a listing as an HTML photo caption of at most captionLimit runes
func ListingCaption(l listing.Listing, siteURL string) string {
	city, region := l.City()

	store := l.StoreName()
	if store == "" {
		store = "N/A"
	}

	var footer strings.Builder
	fmt.Fprintf(&footer, "💰 %s\n", field(listing.PriceLine(string(l.PricePreview), l.PriceUnit, l.PriceType)))
	fmt.Fprintf(&footer, "📍 %s\n", field(listing.LocationLine(city, region)))
	fmt.Fprintf(&footer, "🆔 %s\n", field(string(l.ID)))
	fmt.Fprintf(&footer, "🏪 %s", field(store))
	if t, ok := l.CreatedTime(); ok {
		fmt.Fprintf(&footer, "\n🕒 %s", t.UTC().Format(timeLayout))
	}

	description := strings.TrimSpace(l.Description)
	if description == "" {
		description = "No description"
	}

	return compose(l.Title, l.URL(siteURL), description, footer.String())
}

// FavoriteCaption renders a favorite for the mirror channel, within captionLimit runes
func FavoriteCaption(f favorite.Favorite) string {
	title := f.Title
	if title == "" {
		title = "Favorite listing"
	}

	var body string
	if f.Note != "" {
		body = fmt.Sprintf("Reviewer: %s\n\n%s", f.UserTag, f.Note)
	}

	created, err := time.Parse(time.RFC3339, f.CreatedAt)
	if err != nil {
		created = f.Created()
	}

	var footer strings.Builder
	fmt.Fprintf(&footer, "💰 %s\n", field(listing.PriceLine(string(f.PricePreview), f.PriceUnit, f.PriceType)))
	fmt.Fprintf(&footer, "📍 %s\n", field(listing.LocationLine(f.City, f.Region)))
	fmt.Fprintf(&footer, "🕒 %s", created.UTC().Format(timeLayout))

	return compose(title, f.URL, body, footer.String())
}

// compose joins a linked title, an optional body and an escaped footer. The
// body gets whatever room the rest leaves, the title shrinks only when even
// an empty body does not fit. Titles of overlong URLs are not linked.
func compose(title, url, body, footer string) string {
	const separators = 4 // two blank lines

	href := html.EscapeString(url)
	link := func(escapedTitle string) string {
		if href == "" || utf8.RuneCountInString(href) > urlLimit {
			return "<b>" + escapedTitle + "</b>"
		}
		return fmt.Sprintf(`<b><a href="%s">%s</a></b>`, href, escapedTitle)
	}

	fixed := utf8.RuneCountInString(link("")) + utf8.RuneCountInString(footer) + separators
	header := link(escapeTruncated(title, min(titleLimit, captionLimit-fixed)))

	budget := captionLimit - utf8.RuneCountInString(header) - utf8.RuneCountInString(footer) - separators
	text := escapeTruncated(body, budget)
	if text == "" {
		return header + "\n\n" + footer
	}
	return header + "\n\n" + text + "\n\n" + footer
}

func field(s string) string {
	return escapeTruncated(s, fieldLimit)
}

// escapeTruncated escapes s and cuts it on a rune boundary so the escaped
// text fits in limit runes, ellipsis included
func escapeTruncated(s string, limit int) string {
	escaped := html.EscapeString(s)
	if utf8.RuneCountInString(escaped) <= limit {
		return escaped
	}
	if limit <= 1 {
		return ""
	}

	var b strings.Builder
	n := 0
	for _, r := range s {
		e := html.EscapeString(string(r))
		l := utf8.RuneCountInString(e)
		if n+l > limit-1 {
			break
		}
		b.WriteString(e)
		n += l
	}
	b.WriteString("…")
	return b.String()
}
