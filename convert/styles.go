package convert

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// StyleSet is a small ordered collection of CSS declarations attached to one
// output node. Emission is sorted by property name so identical formatting
// always yields byte-identical style strings - the downstream class
// fabrication pass groups nodes by (tag, sorted style pairs) and relies on
// that stability.
type StyleSet struct {
	names  []string
	values map[string]string
}

func NewStyleSet() *StyleSet {
	return &StyleSet{values: make(map[string]string)}
}

// Set adds or overwrites one declaration.
func (s *StyleSet) Set(name, value string) {
	if _, exists := s.values[name]; !exists {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

func (s *StyleSet) Empty() bool {
	return len(s.names) == 0
}

// String renders the declarations sorted by property name.
func (s *StyleSet) String() string {
	if s.Empty() {
		return ""
	}
	names := append([]string(nil), s.names...)
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(s.values[name])
	}
	return b.String()
}

// Apply attaches the style attribute to the element when non-empty.
func (s *StyleSet) Apply(el *etree.Element) {
	if css := s.String(); css != "" {
		el.CreateAttr("style", css)
	}
}

// StyleGroup is one bucket of the class fabrication contract: every element
// sharing a tag and an identical sorted style string belongs to one group and
// will receive one shared class.
type StyleGroup struct {
	Tag      string
	Style    string
	Elements []*etree.Element
}

// GroupByStyle walks the tree in document order and groups styled elements
// by (tag, sorted style pairs), first-seen order preserved. The actual class
// fabrication happens downstream; this helper defines the grouping contract
// it depends on.
func GroupByStyle(root *etree.Element) []StyleGroup {
	var groups []StyleGroup
	index := make(map[string]int)

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if css := el.SelectAttrValue("style", ""); css != "" {
			key := el.Tag + "\x00" + css
			i, seen := index[key]
			if !seen {
				i = len(groups)
				index[key] = i
				groups = append(groups, StyleGroup{Tag: el.Tag, Style: css})
			}
			groups[i].Elements = append(groups[i].Elements, el)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root != nil {
		walk(root)
	}
	return groups
}
