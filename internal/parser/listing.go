package parser

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// resultLinkRe matches detail-page links of the form /result/<id>.
var resultLinkRe = regexp.MustCompile(`/result/(\d+)`)

// ListingParser extracts entry stubs from a paginated results listing page.
type ListingParser struct {
	logger *slog.Logger
}

// NewListingParser creates a new listing parser.
func NewListingParser(logger *slog.Logger) *ListingParser {
	return &ListingParser{
		logger: logger.With("component", "listing_parser"),
	}
}

// ExtractStubs finds the results table in a listing page and returns one
// stub per entry row. The CSS path is tried first; when it finds nothing,
// an XPath pass covers markups the selector misses. An empty slice with a
// nil error means the page genuinely carried no entries.
func (p *ListingParser) ExtractStubs(body []byte, baseURL string) ([]types.EntryStub, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, What: "base url", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, What: "document", Err: err}
	}

	if doc.Find("table").Length() == 0 {
		return nil, &types.ParseError{URL: baseURL, What: "results table", Err: types.ErrNoResultsTable}
	}

	stubs := p.stubsFromDocument(doc, base)
	if len(stubs) == 0 {
		stubs = p.stubsViaXPath(body, base)
	}
	return stubs, nil
}

// stubsFromDocument walks table rows and pulls the first result link per row.
func (p *ListingParser) stubsFromDocument(doc *goquery.Document, base *url.URL) []types.EntryStub {
	var stubs []types.EntryStub
	seen := make(map[int64]struct{})

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		row.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			stub, ok := stubFromHref(href, base)
			if !ok {
				return true // keep scanning this row
			}
			if _, dup := seen[stub.ID]; dup {
				return false
			}
			seen[stub.ID] = struct{}{}
			stubs = append(stubs, stub)
			return false
		})
	})

	return stubs
}

// stubsViaXPath is the fallback locator for result links.
func (p *ListingParser) stubsViaXPath(body []byte, base *url.URL) []types.EntryStub {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("xpath fallback parse failed", "error", err)
		return nil
	}

	nodes, err := htmlquery.QueryAll(doc, `//table//a[contains(@href, '/result/')]`)
	if err != nil {
		p.logger.Warn("xpath query failed", "error", err)
		return nil
	}

	var stubs []types.EntryStub
	seen := make(map[int64]struct{})
	for _, node := range nodes {
		href := htmlquery.SelectAttr(node, "href")
		stub, ok := stubFromHref(href, base)
		if !ok {
			continue
		}
		if _, dup := seen[stub.ID]; dup {
			continue
		}
		seen[stub.ID] = struct{}{}
		stubs = append(stubs, stub)
	}
	return stubs
}

// stubFromHref parses a candidate link into a stub.
func stubFromHref(href string, base *url.URL) (types.EntryStub, bool) {
	m := resultLinkRe.FindStringSubmatch(href)
	if m == nil {
		return types.EntryStub{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return types.EntryStub{}, false
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return types.EntryStub{}, false
	}
	return types.NewEntryStub(id, base.ResolveReference(ref).String()), true
}
