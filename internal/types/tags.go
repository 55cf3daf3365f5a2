package types

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Health tags written by the source checker. They double as user-facing groups.
const (
	TagInvalid          = "invalid"
	TagSearchInvalid    = "search invalid"
	TagDiscoveryInvalid = "discovery invalid"
	TagTocInvalid       = "toc invalid"
	TagContentInvalid   = "content invalid"
	TagRuleInvalid      = "rule invalid"
	TagTimedOut         = "timed out"
)

// splitTags matches the separators accepted in legacy delimited group strings.
var splitTags = regexp.MustCompile(`[,;，；]`)

// TagSet is an ordered set of tags. Add and Remove are idempotent.
type TagSet []string

// ParseTags builds a TagSet from a delimited string such as "a,b;c".
func ParseTags(s string) TagSet {
	var t TagSet
	for _, part := range splitTags.Split(s, -1) {
		t.Add(part)
	}
	return t
}

// Has reports whether tag is present.
func (t TagSet) Has(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Add inserts tag if absent. Blank tags are ignored.
func (t *TagSet) Add(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" || t.Has(tag) {
		return
	}
	*t = append(*t, tag)
}

// Remove deletes tag if present.
func (t *TagSet) Remove(tag string) {
	tag = strings.TrimSpace(tag)
	out := (*t)[:0]
	for _, v := range *t {
		if v != tag {
			out = append(out, v)
		}
	}
	*t = out
}

// Clone returns an independent copy.
func (t TagSet) Clone() TagSet {
	if t == nil {
		return nil
	}
	out := make(TagSet, len(t))
	copy(out, t)
	return out
}

// String joins the tags with commas.
func (t TagSet) String() string {
	return strings.Join(t, ",")
}

// UnmarshalJSON accepts either a JSON array or a legacy delimited string.
func (t *TagSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = nil
		for _, v := range list {
			t.Add(v)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTags(s)
	return nil
}
