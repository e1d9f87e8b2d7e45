package catalog

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// elementy wycinane razem z zawartością
var droppedBlocks = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true,
	"form": true, "noscript": true, "template": true,
}

// elementy puste wycinane bez zawartości
var droppedVoid = map[string]bool{
	"embed": true, "base": true, "meta": true, "link": true,
}

// StripTags zwraca sam tekst (encje zdekodowane, białe znaki zwinięte).
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tt == html.StartTagToken && droppedBlocks[tag] {
				skip++
			}
			if tag == "br" || tag == "p" || tag == "li" || tag == "div" {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if droppedBlocks[string(name)] && skip > 0 {
				skip--
			}
		}
	}
}

// SanitizeHTML zostawia zwykły markup opisu, wycina skrypty, osadzenia,
// atrybuty on* i linki javascript:/vbscript:/data:.
func SanitizeHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			if droppedBlocks[t.Data] {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if skip > 0 || droppedVoid[t.Data] {
				continue
			}
			t.Attr = safeAttrs(t.Attr)
			b.WriteString(t.String())
		case html.EndTagToken:
			t := z.Token()
			if droppedBlocks[t.Data] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if skip > 0 {
				continue
			}
			b.WriteString(t.String())
		case html.TextToken:
			if skip == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}
		}
	}
}

func safeAttrs(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if key == "href" || key == "src" || key == "action" || key == "formaction" {
			v := strings.ToLower(strings.TrimSpace(a.Val))
			if strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") || strings.HasPrefix(v, "data:") {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// ValidImageURL – tylko absolutne adresy http(s) z hostem.
func ValidImageURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
