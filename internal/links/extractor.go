// Package links locates the tracking pixel, content links, and
// unsubscribe link inside an HTML email body.
package links

import (
	"strings"

	css "github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	anchorSelector = css.MustCompile("a[href]")
	imageSelector  = css.MustCompile("img[src]")
)

const (
	openPathMarker        = "/track/open/"
	unsubscribePathMarker = "/unsubscribe/"
	trackedUnsubMarker    = "/track/unsubscribe/"
)

// attrValue returns the value of the named attribute of n, or "".
func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// nodeText collects the visible text beneath n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

// parse tolerates malformed markup; x/net/html always produces a tree.
func parse(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

func isUnsubscribeHref(href string) bool {
	return strings.Contains(href, unsubscribePathMarker) ||
		strings.Contains(href, trackedUnsubMarker)
}

func isUnsubscribeText(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "unsubscribe") || strings.Contains(lower, "opt out")
}

// TrackingPixelURL returns the URL of the open-tracking pixel. It
// prefers a URL with a /track/open/ path segment, falling back to any
// URL containing "track". Returns "" when nothing matches.
func TrackingPixelURL(body string) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}

	var urls []string
	for _, img := range imageSelector.MatchAll(doc) {
		if src := attrValue(img, "src"); src != "" {
			urls = append(urls, src)
		}
	}
	for _, a := range anchorSelector.MatchAll(doc) {
		if href := attrValue(a, "href"); href != "" {
			urls = append(urls, href)
		}
	}

	for _, u := range urls {
		if strings.Contains(u, openPathMarker) {
			return u, nil
		}
	}
	for _, u := range urls {
		if strings.Contains(u, "track") {
			return u, nil
		}
	}
	return "", nil
}

// ContentLinks returns every anchor href in document order, excluding
// javascript: and mailto: schemes and unsubscribe paths. Returns an
// empty slice when the body has no eligible links.
func ContentLinks(body string) ([]string, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, a := range anchorSelector.MatchAll(doc) {
		href := strings.TrimSpace(attrValue(a, "href"))
		if href == "" {
			continue
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
			continue
		}
		if isUnsubscribeHref(href) {
			continue
		}
		out = append(out, href)
	}
	return out, nil
}

// UnsubscribeLink returns the first anchor whose href contains an
// unsubscribe path, or whose visible text mentions unsubscribing.
// Returns "" when no such link exists.
func UnsubscribeLink(body string) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}

	for _, a := range anchorSelector.MatchAll(doc) {
		href := attrValue(a, "href")
		if href == "" {
			continue
		}
		if isUnsubscribeHref(href) || isUnsubscribeText(nodeText(a)) {
			return href, nil
		}
	}
	return "", nil
}
