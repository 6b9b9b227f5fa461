package validation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// fieldReader pulls typed values out of raw form fields, recording coercion
// failures instead of aborting so that every field gets reported
type fieldReader struct {
	raw  map[string]string
	errs map[string][]string
}

func newFieldReader(raw map[string]string) *fieldReader {
	return &fieldReader{raw: raw, errs: make(map[string][]string)}
}

func (r *fieldReader) str(key string) string {
	return strings.TrimSpace(r.raw[key])
}

// optStr maps missing and blank values to nil
func (r *fieldReader) optStr(key string) *string {
	s := r.str(key)
	if s == "" {
		return nil
	}
	return &s
}

func (r *fieldReader) text(key string) string {
	return sanitizeText(r.raw[key])
}

func (r *fieldReader) optText(key string) *string {
	s := sanitizeText(r.raw[key])
	if s == "" {
		return nil
	}
	return &s
}

func (r *fieldReader) optInt(key string) *int {
	s := r.str(key)
	if s == "" {
		return nil
	}

	n, err := strconv.Atoi(s)
	if err == nil {
		return &n
	}

	if errors.Is(err, strconv.ErrRange) {
		r.errs[key] = append(r.errs[key], "Number is out of range")
	} else if _, ferr := strconv.ParseFloat(s, 64); ferr == nil {
		r.errs[key] = append(r.errs[key], "Expected integer, received float")
	} else {
		r.errs[key] = append(r.errs[key], "Expected number, received string")
	}
	return nil
}

// sanitizeText removes <script> and <style> elements from free text.
// Everything else, including text that merely looks like markup, is kept
// exactly as typed.
func sanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil || doc.Find("script, style").Length() == 0 {
		return s
	}
	return strings.TrimSpace(stripActiveElements(s))
}

// stripActiveElements drops complete script and style elements. An element
// missing its closing tag, and any input the tokenizer leaves unread, is
// written back verbatim.
func stripActiveElements(s string) string {
	var out, pending strings.Builder
	var skipping string
	consumed := 0

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		consumed += len(raw)

		if skipping != "" {
			pending.Write(raw)
			if tt == html.EndTagToken {
				if name, _ := z.TagName(); string(name) == skipping {
					skipping = ""
					pending.Reset()
				}
			}
			continue
		}

		if tt == html.StartTagToken {
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipping = tag
				pending.Write(raw)
				continue
			}
		}
		out.Write(raw)
	}

	out.WriteString(pending.String())
	if consumed < len(s) {
		out.WriteString(s[consumed:])
	}
	return out.String()
}
