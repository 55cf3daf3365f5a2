package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorPrefix marks comment paragraphs written by the source checker.
const ErrorPrefix = "Error: "

// commentSep separates comment paragraphs.
const commentSep = "\n\n"

// BookSource is a user-supplied rule set describing how to search, browse
// and scrape one reading website. URL is the identity.
type BookSource struct {
	URL            string            `json:"bookSourceUrl"`
	Name           string            `json:"bookSourceName"`
	Group          string            `json:"bookSourceGroup,omitempty"`
	Tags           TagSet            `json:"tags,omitempty"`
	Comment        string            `json:"bookSourceComment,omitempty"`
	RespondTime    int64             `json:"respondTime"`
	Enabled        bool              `json:"enabled"`
	EnabledExplore bool              `json:"enabledExplore"`
	CustomOrder    int               `json:"customOrder"`
	Header         map[string]string `json:"header,omitempty"`
	Charset        string            `json:"charset,omitempty"`
	SearchURL      string            `json:"searchUrl,omitempty"`
	ExploreURL     string            `json:"exploreUrl,omitempty"`
	RuleSearch     SearchRule        `json:"ruleSearch"`
	RuleExplore    BookListRule      `json:"ruleExplore"`
	RuleBookInfo   BookInfoRule      `json:"ruleBookInfo"`
	RuleToc        TocRule           `json:"ruleToc"`
	RuleContent    ContentRule       `json:"ruleContent"`
	LastUpdateTime int64             `json:"lastUpdateTime"`
}

// BookListRule extracts book records from a search or discovery page.
type BookListRule struct {
	BookList string `json:"bookList,omitempty"`
	Name     string `json:"name,omitempty"`
	Author   string `json:"author,omitempty"`
	Intro    string `json:"intro,omitempty"`
	BookURL  string `json:"bookUrl,omitempty"`
	TocURL   string `json:"tocUrl,omitempty"`
}

// SearchRule is a BookListRule plus the keyword used when checking the source.
type SearchRule struct {
	CheckKeyWord string `json:"checkKeyWord,omitempty"`
	BookListRule
}

// BookInfoRule extracts book detail from the detail page.
type BookInfoRule struct {
	Name   string `json:"name,omitempty"`
	Author string `json:"author,omitempty"`
	Intro  string `json:"intro,omitempty"`
	TocURL string `json:"tocUrl,omitempty"`
}

// TocRule extracts the chapter list.
type TocRule struct {
	ChapterList string `json:"chapterList,omitempty"`
	ChapterName string `json:"chapterName,omitempty"`
	ChapterURL  string `json:"chapterUrl,omitempty"`
}

// ContentRule extracts chapter text. NextContentURL, when set, yields the
// link to a chapter's following page.
type ContentRule struct {
	Content        string `json:"content,omitempty"`
	NextContentURL string `json:"nextContentUrl,omitempty"`
}

// ExploreKind is one discovery endpoint.
type ExploreKind struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// ExploreKinds parses ExploreURL in declaration order. Two forms are accepted:
// a JSON array of {title,url} objects, or "title::url" entries separated by
// newlines or "&&". An entry without "::" is a title with no URL.
func (s *BookSource) ExploreKinds() ([]ExploreKind, error) {
	raw := strings.TrimSpace(s.ExploreURL)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var kinds []ExploreKind
		if err := json.Unmarshal([]byte(raw), &kinds); err != nil {
			return nil, fmt.Errorf("parse explore url: %w", err)
		}
		return kinds, nil
	}
	var kinds []ExploreKind
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' }) {
		for _, entry := range strings.Split(line, "&&") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			title, url, _ := strings.Cut(entry, "::")
			kinds = append(kinds, ExploreKind{
				Title: strings.TrimSpace(title),
				URL:   strings.TrimSpace(url),
			})
		}
	}
	return kinds, nil
}

// AddTag adds a tag. Adding a present tag is a no-op.
func (s *BookSource) AddTag(tag string) { s.Tags.Add(tag) }

// RemoveTag removes a tag if present.
func (s *BookSource) RemoveTag(tags ...string) {
	for _, t := range tags {
		s.Tags.Remove(t)
	}
}

// HasTag reports whether the source carries tag.
func (s *BookSource) HasTag(tag string) bool { return s.Tags.Has(tag) }

// PruneErrorComments removes comment paragraphs written by a previous check.
func (s *BookSource) PruneErrorComments() {
	if s.Comment == "" {
		return
	}
	var kept []string
	for _, p := range strings.Split(s.Comment, commentSep) {
		if strings.HasPrefix(p, ErrorPrefix) {
			continue
		}
		kept = append(kept, p)
	}
	s.Comment = strings.Join(kept, commentSep)
}

// PrependError puts a timestamped error paragraph ahead of the existing comment.
func (s *BookSource) PrependError(now time.Time, msg string) {
	line := fmt.Sprintf("%s[%s] %s", ErrorPrefix, now.Format(time.DateTime), msg)
	if strings.TrimSpace(s.Comment) == "" {
		s.Comment = line
		return
	}
	s.Comment = line + commentSep + s.Comment
}

// Clone returns a deep copy that can be mutated without touching s.
func (s *BookSource) Clone() *BookSource {
	c := *s
	c.Tags = s.Tags.Clone()
	if s.Header != nil {
		c.Header = make(map[string]string, len(s.Header))
		for k, v := range s.Header {
			c.Header[k] = v
		}
	}
	return &c
}
