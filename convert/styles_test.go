package convert

import (
	"testing"

	"github.com/beevik/etree"
)

func TestStyleSetSortedOutput(t *testing.T) {
	s := NewStyleSet()
	s.Set("font-weight", "bold")
	s.Set("color", "#336699")
	s.Set("font-weight", "normal") // overwrite keeps one entry

	want := "color: #336699; font-weight: normal"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStyleSetEmptyAppliesNothing(t *testing.T) {
	el := etree.NewElement("p")
	NewStyleSet().Apply(el)
	if el.SelectAttr("style") != nil {
		t.Error("empty style set attached a style attribute")
	}
}

func TestGroupByStyleFirstSeenOrder(t *testing.T) {
	root := etree.NewElement("body")
	a := root.CreateElement("span")
	a.CreateAttr("style", "color: #ff0000")
	b := root.CreateElement("p")
	b.CreateAttr("style", "color: #ff0000")
	c := root.CreateElement("span")
	c.CreateAttr("style", "color: #ff0000")
	root.CreateElement("span") // unstyled, ignored

	groups := GroupByStyle(root)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// same style on a different tag is a different group; first-seen order
	if groups[0].Tag != "span" || groups[1].Tag != "p" {
		t.Errorf("group order = %s, %s; want span, p", groups[0].Tag, groups[1].Tag)
	}
	if len(groups[0].Elements) != 2 {
		t.Errorf("span group has %d elements, want 2", len(groups[0].Elements))
	}
}
