package webbook

import (
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// node is the context a rule is evaluated against: an HTML element or a raw
// JSON value.
type node struct {
	html *html.Node
	json string
}

func (n node) isJSON() bool { return n.html == nil }

// parseDocument parses a response body as JSON when it is valid JSON and as
// HTML otherwise.
func parseDocument(body string) (node, error) {
	trimmed := strings.TrimSpace(body)
	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && gjson.Valid(trimmed) {
		return node{json: trimmed}, nil
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return node{}, err
	}
	return node{html: doc}, nil
}

const ruleRegexTimeout = 2 * time.Second

// rule is a parsed extraction rule.
//
//	$.data.list[*]            JSON path (also "@json:" prefixed)
//	div.item a@href           CSS selector, then an extractor
//	@text                     extractor on the current element
//	h1@text##\s+更新.*##       optional regex replacement applied to each value
//	a@text&&span@text         several rules whose values are concatenated
type rule struct {
	parts   []string
	pattern string
	replace string
}

func parseRule(raw string) rule {
	var r rule
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "##"); idx >= 0 {
		rest := strings.SplitN(raw[idx+2:], "##", 2)
		r.pattern = rest[0]
		if len(rest) == 2 {
			r.replace = rest[1]
		}
		raw = raw[:idx]
	}
	for _, p := range strings.Split(raw, "&&") {
		if p = strings.TrimSpace(p); p != "" {
			r.parts = append(r.parts, p)
		}
	}
	return r
}

func isJSONRule(s string) bool {
	return strings.HasPrefix(s, "$.") || strings.HasPrefix(s, "$[") || strings.HasPrefix(s, "@json:")
}

var bracketIndex = regexp.MustCompile(`\[(-?\d+)\]`)

// jsonPath converts a "$.a.b[0]" style path to gjson syntax.
func jsonPath(s string) string {
	p := strings.TrimPrefix(s, "@json:")
	p = strings.TrimPrefix(p, "$")
	p = strings.ReplaceAll(p, "[*]", "")
	p = bracketIndex.ReplaceAllString(p, ".$1")
	return strings.TrimPrefix(p, ".")
}

func jsonResult(raw, path string) gjson.Result {
	if path == "" {
		return gjson.Parse(raw)
	}
	return gjson.Get(raw, path)
}

// elements evaluates a list rule and returns the matched items.
func elements(n node, raw string) []node {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "@css:"))
	if raw == "" {
		return nil
	}
	if n.isJSON() {
		res := jsonResult(n.json, jsonPath(raw))
		if !res.Exists() {
			return nil
		}
		if !res.IsArray() {
			return []node{{json: res.Raw}}
		}
		var out []node
		res.ForEach(func(_, v gjson.Result) bool {
			out = append(out, node{json: v.Raw})
			return true
		})
		return out
	}
	var out []node
	for _, el := range querySelectorAll(n.html, raw) {
		out = append(out, node{html: el})
	}
	return out
}

// values evaluates a field rule and returns every extracted string.
func values(n node, raw string) []string {
	r := parseRule(raw)
	var out []string
	for _, part := range r.parts {
		out = append(out, evalPart(n, part)...)
	}
	if r.pattern == "" {
		return out
	}
	re, err := regexp2.Compile(r.pattern, regexp2.None)
	if err != nil {
		return out
	}
	re.MatchTimeout = ruleRegexTimeout
	for i, v := range out {
		if replaced, err := re.Replace(v, r.replace, -1, -1); err == nil {
			out[i] = replaced
		}
	}
	return out
}

// value joins every extracted string with a newline and trims the result.
func value(n node, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return strings.TrimSpace(strings.Join(values(n, raw), "\n"))
}

func evalPart(n node, part string) []string {
	part = strings.TrimPrefix(part, "@css:")
	if n.isJSON() || isJSONRule(part) {
		if !n.isJSON() {
			return nil
		}
		res := jsonResult(n.json, jsonPath(part))
		if res.IsArray() {
			var out []string
			res.ForEach(func(_, v gjson.Result) bool {
				out = append(out, v.String())
				return true
			})
			return out
		}
		if !res.Exists() {
			return nil
		}
		return []string{res.String()}
	}

	selector, extractor := part, "text"
	if idx := strings.LastIndex(part, "@"); idx >= 0 {
		selector, extractor = part[:idx], part[idx+1:]
	}
	targets := []*html.Node{n.html}
	if strings.TrimSpace(selector) != "" {
		targets = querySelectorAll(n.html, selector)
	}
	var out []string
	for _, el := range targets {
		if v := extract(el, extractor); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func extract(el *html.Node, extractor string) string {
	switch extractor {
	case "text":
		return textContent(el)
	case "ownText":
		return ownText(el)
	case "textNodes":
		return textNodes(el)
	case "html":
		return innerHTML(el)
	case "all":
		var sb strings.Builder
		_ = html.Render(&sb, el)
		return sb.String()
	default:
		return strings.TrimSpace(attr(el, extractor))
	}
}
