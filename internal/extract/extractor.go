// Package extract pulls film fields out of a film page using HTML selectors.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/film-info-crawler/internal/film"
	"github.com/JakeFAU/film-info-crawler/internal/tags"
)

// ErrMalformedPage reports that a required element is missing or unparsable.
// Pages that fail this way do not match the known film template.
var ErrMalformedPage = errors.New("malformed film page")

const (
	modelsLabel = "Models:"
	genreLabel  = "Genre:"
)

var (
	codePattern = regexp.MustCompile(`watch-((?:\w+-){0,2}\w*\d+)`)
	// fieldLabel matches the start of another "Name:" field on the page.
	fieldLabel = regexp.MustCompile(`^\s*\w[\w ]*:`)

	modelsSelector = fmt.Sprintf(`:contains(%q)`, modelsLabel)
)

// Extractor turns raw film page markup into film.Fields.
type Extractor struct {
	tags *tags.Dictionary
}

// New builds an Extractor that translates tags through dict.
func New(dict *tags.Dictionary) *Extractor {
	return &Extractor{tags: dict}
}

// CodeFromURL returns the upper-case product code embedded in a film URL.
func CodeFromURL(pageURL string) (string, bool) {
	match := codePattern.FindStringSubmatch(pageURL)
	if match == nil {
		return "", false
	}
	return strings.ToUpper(match[1]), true
}

// Extract parses page for pageURL. The boolean is false when there is nothing
// to extract: the page is nil or the URL carries no product code. A non-nil
// error wraps ErrMalformedPage.
func (e *Extractor) Extract(pageURL string, page []byte) (film.Fields, bool, error) {
	code, ok := CodeFromURL(pageURL)
	if !ok || page == nil {
		return film.Fields{}, false, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return film.Fields{}, false, fmt.Errorf("%w: parse html: %v", ErrMalformedPage, err)
	}

	fields := film.Fields{Code: code}
	if searchCode, ok := film.NormalizeCode(code); ok {
		fields.SearchCode = &searchCode
	}

	if fields.Count, err = viewCount(doc); err != nil {
		return film.Fields{}, false, err
	}
	if fields.Models, err = models(doc); err != nil {
		return film.Fields{}, false, err
	}
	if fields.Title, err = title(doc); err != nil {
		return film.Fields{}, false, err
	}
	if fields.ImgURL, err = imageURL(doc); err != nil {
		return film.Fields{}, false, err
	}
	rawTags, err := genreTags(doc)
	if err != nil {
		return film.Fields{}, false, err
	}
	fields.Tags = e.tags.Translate(rawTags)
	return fields, true, nil
}

func malformed(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedPage, field, fmt.Sprintf(format, args...))
}

func viewCount(doc *goquery.Document) (int, error) {
	sel := doc.Find("div.film_view_count").First()
	if sel.Length() == 0 {
		return 0, malformed("count", "view count container not found")
	}
	text := strings.TrimSpace(sel.Text())
	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, malformed("count", "parse %q: %v", text, err)
	}
	if count < 0 {
		return 0, malformed("count", "negative view count %d", count)
	}
	return count, nil
}

// models reads the text following the "Models:" label. The label may share an
// element with the names or sit in its own element next to them; in the
// latter case only the label's following siblings are read, up to the next
// labelled element.
func models(doc *goquery.Document) (string, error) {
	label := doc.Find(modelsSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), modelsLabel) && s.Children().Filter(modelsSelector).Length() == 0
	}).First()
	if label.Length() == 0 {
		return "", malformed("models", "label %q not found", modelsLabel)
	}

	if names := afterLabel(label.Text(), modelsLabel); names != "" {
		return names, nil
	}
	siblings := label.Parent().Contents()
	idx := siblings.IndexOfSelection(label)
	if idx < 0 {
		return "", nil
	}
	var parts []string
	siblings.Slice(idx+1, goquery.ToEnd).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if goquery.NodeName(s) != "#text" && fieldLabel.MatchString(text) {
			return false
		}
		parts = append(parts, text)
		return true
	})
	return collapseSpace(strings.Join(parts, "")), nil
}

func title(doc *goquery.Document) (string, error) {
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return "", malformed("title", "title element not found")
	}
	return collapseSpace(sel.Text()), nil
}

func imageURL(doc *goquery.Document) (string, error) {
	src, ok := doc.Find(`img[itemprop="image"]`).First().Attr("src")
	if !ok {
		return "", malformed("img_url", "image element not found")
	}
	return strings.TrimSpace(src), nil
}

func genreTags(doc *goquery.Document) ([]string, error) {
	genre := doc.Find("li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.HasPrefix(strings.TrimSpace(s.Text()), genreLabel)
	}).First()
	if genre.Length() == 0 {
		return nil, malformed("tags", "genre list not found")
	}
	out := []string{}
	genre.Find("a").Each(func(_ int, a *goquery.Selection) {
		out = append(out, strings.TrimSpace(a.Text()))
	})
	return out, nil
}

func afterLabel(text, label string) string {
	_, after, found := strings.Cut(text, label)
	if !found {
		return ""
	}
	return collapseSpace(after)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
