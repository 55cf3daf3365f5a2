package webbook

import (
	"strings"
	"testing"
)

const ruleDoc = `<html><body>
<div id="main" class="box wide">
  <ul>
    <li class="item"><a href="/a" data-id="1">First</a> tail</li>
    <li class="item hot"><a href="/b" data-id="2">Second</a></li>
    <li class="item"><a href="/c" data-id="3">Third</a></li>
  </ul>
  <h1>Title 更新于 2024</h1>
</div>
</body></html>`

func mustParse(t *testing.T, body string) node {
	t.Helper()
	n, err := parseDocument(body)
	if err != nil {
		t.Fatalf("parseDocument() error = %v", err)
	}
	return n
}

func TestSelectors(t *testing.T) {
	doc := mustParse(t, ruleDoc)

	tests := []struct {
		selector string
		expected int
	}{
		{"li", 3},
		{".item", 3},
		{"li.item.hot", 1},
		{"#main li", 3},
		{"div.box ul li a", 3},
		{"a[data-id=2]", 1},
		{"a[data-id]", 3},
		{"li:eq(0)", 1},
		{"li:eq(-1)", 1},
		{"li:eq(9)", 0},
		{"table||li", 3},
		{"span", 0},
		{"ul > li", 3},
		{"div.box>ul>li.hot", 1},
		{`a[data-id="3"]`, 1},
		{"a[href^=/b]", 1},
		{"li:nth-child(2) a", 1},
		{"li:not(.hot)", 2},
		{"ul:eq(0) > li", 3},
		{"li:eq(1) > a", 1},
		{"div[", 0},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got := querySelectorAll(doc.html, tt.selector)
			if len(got) != tt.expected {
				t.Errorf("expected %d matches, got %d", tt.expected, len(got))
			}
		})
	}
}

func TestSelectors_CombinatorsAndQuotedAttributes(t *testing.T) {
	doc := mustParse(t, `<ul class="list"><li>a</li><li>b</li></ul><div><a title="x y" href="/t">t</a></div>`)

	tests := []struct {
		selector string
		expected int
	}{
		{"ul li", 2},
		{"ul > li", 2},
		{"ul.list>li", 2},
		{`a[title="x y"]`, 1},
		{"li:nth-child(2)", 1},
		{"li:eq(-1)", 1},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			if got := querySelectorAll(doc.html, tt.selector); len(got) != tt.expected {
				t.Errorf("expected %d matches, got %d", tt.expected, len(got))
			}
		})
	}

	if got := value(doc, `a[title="x y"]@href`); got != "/t" {
		t.Errorf("expected /t, got %q", got)
	}
	if got := value(doc, "ul>li:eq(1)@text"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
}

func TestValues(t *testing.T) {
	doc := mustParse(t, ruleDoc)

	tests := []struct {
		name     string
		rule     string
		expected string
	}{
		{"text", "li.hot@text", "Second"},
		{"attr", "li:eq(-1) a@href", "/c"},
		{"own text", "li:eq(0)@ownText", "tail"},
		{"multi values", "li a@text", "First\nSecond\nThird"},
		{"concat", "li.hot a@text&&li:eq(2) a@text", "Second\nThird"},
		{"regex strip", `h1@text##\s*更新.*`, "Title"},
		{"regex replace", `li.hot a@data-id##(\d)###$1`, "#2"},
		{"blank", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := value(doc, tt.rule); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}

	t.Run("list then field", func(t *testing.T) {
		items := elements(doc, ".item")
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		if got := value(items[1], "a@href"); got != "/b" {
			t.Errorf("expected /b, got %q", got)
		}
	})
}

func TestJSONRules(t *testing.T) {
	doc := mustParse(t, `{"data":{"books":[{"name":"A","tags":["x","y"]},{"name":"B"}]},"total":2}`)
	if !doc.isJSON() {
		t.Fatal("expected JSON document")
	}

	items := elements(doc, "$.data.books[*]")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if got := value(items[0], "$.name"); got != "A" {
		t.Errorf("expected A, got %q", got)
	}
	if got := value(items[0], "@json:$.tags"); got != "x\ny" {
		t.Errorf("expected tags joined, got %q", got)
	}
	if got := value(doc, "$.data.books[1].name"); got != "B" {
		t.Errorf("expected B, got %q", got)
	}
	if got := value(doc, "$.total"); got != "2" {
		t.Errorf("expected 2, got %q", got)
	}

	root := mustParse(t, `[{"name":"only"}]`)
	if got := elements(root, "$[*]"); len(got) != 1 {
		t.Errorf("expected 1 root item, got %d", len(got))
	}
}

func TestHTMLToText(t *testing.T) {
	got := htmlToText(`<p>One &amp; done</p><p>Two<br/>Three</p><script>x</script>`)
	lines := strings.FieldsFunc(got, func(r rune) bool { return r == '\n' })
	if len(lines) != 3 || lines[0] != "One & done" || lines[2] != "Three" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestSplitURLOptions(t *testing.T) {
	u, opts, err := splitURLOptions(`/s?q={{key}},{"method":"POST","charset":"gbk"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != "/s?q={{key}}" || opts.Method != "POST" || opts.Charset != "gbk" {
		t.Errorf("unexpected split: %q %+v", u, opts)
	}

	u, _, _ = splitURLOptions("/plain?a=1,2")
	if u != "/plain?a=1,2" {
		t.Errorf("expected plain url untouched, got %q", u)
	}

	if _, _, err := splitURLOptions(`/x,{bad}`); err == nil {
		t.Error("expected error for malformed options")
	}

	if got := expandTemplate("/s?q={{key}}&p={{page}}", "a b", 2); got != "/s?q=a+b&p=2" {
		t.Errorf("unexpected template expansion: %q", got)
	}
}
