package webbook

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// indexPseudo matches the ":eq(n)" and ":nth(n)" rule extensions. Each keeps
// one element of the matches so far; negative indexes count from the end.
var indexPseudo = regexp.MustCompile(`:(?:eq|nth)\((-?\d+)\)`)

// bareAttrValue matches attribute selectors with an unquoted value, which
// cascadia only accepts when the value is a valid identifier.
var bareAttrValue = regexp.MustCompile(`\[\s*([^\]\s~|^$*!=]+)\s*([~|^$*]?=)\s*([^\]"'\s]+)\s*\]`)

// querySelectorAll returns the elements under root matching a CSS selector.
// Several selectors can be joined with "||"; the first that matches wins.
func querySelectorAll(root *html.Node, selector string) []*html.Node {
	doc := goquery.NewDocumentFromNode(root)
	for _, alt := range strings.Split(selector, "||") {
		if nodes := query(doc.Selection, alt); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

// query splits selector at each index extension and runs the plain CSS
// pieces through cascadia in between.
func query(sel *goquery.Selection, selector string) []*html.Node {
	rest := strings.TrimSpace(selector)
	if rest == "" {
		return nil
	}
	for rest != "" {
		loc := indexPseudo.FindStringSubmatchIndex(rest)
		if loc == nil {
			sel = find(sel, rest)
			rest = ""
		} else {
			sel = find(sel, rest[:loc[0]])
			n, _ := strconv.Atoi(rest[loc[2]:loc[3]])
			sel = sel.Eq(n)
			rest = strings.TrimSpace(rest[loc[1]:])
		}
		if sel.Length() == 0 {
			return nil
		}
	}
	return sel.Nodes
}

// find matches css against the descendants of sel. A leading ">" continues
// from the direct children, which happens after an index extension such as
// "ul:eq(0) > li".
func find(sel *goquery.Selection, css string) *goquery.Selection {
	css = strings.TrimSpace(css)
	switch {
	case css == "":
		return sel
	case strings.HasPrefix(css, ">"):
		head, tail, _ := strings.Cut(strings.TrimSpace(css[1:]), " ")
		head = bareAttrValue.ReplaceAllString(head, `[$1$2"$3"]`)
		return find(sel.ChildrenFiltered(head), tail)
	default:
		return sel.Find(bareAttrValue.ReplaceAllString(css, `[$1$2"$3"]`))
	}
}

func attr(el *html.Node, key string) string {
	return goquery.NewDocumentFromNode(el).AttrOr(key, "")
}
