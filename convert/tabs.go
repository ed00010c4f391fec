package convert

import (
	"sort"
	"strings"

	"docxodus/config"
	"docxodus/wml"
)

// Tab layout. The source format stores tab characters without widths - the
// rendered width of each tab depends on the paragraph's stops, the cursor
// position and the width of the text that follows. All positions and widths
// are twips.

// TextWidthOracle measures rendered text width in twips. Size is in
// half-points as carried by run properties. An unknown font family measures
// as 0 and layout degrades to unrefined spacing instead of failing.
type TextWidthOracle interface {
	Measure(family string, bold, italic bool, halfPointSize int, text string) int
}

// FontMetricsOracle is an average-glyph-width approximation: family maps to
// twips of advance per half-point of size per character. Good enough to land
// text near its stop without shaping the actual glyphs.
type FontMetricsOracle struct {
	factors map[string]float64
}

// builtinMetrics covers families we see most. Factors were eyeballed from
// rendered samples at 11pt.
var builtinMetrics = map[string]float64{
	"calibri":         5.0,
	"cambria":         5.1,
	"arial":           5.2,
	"helvetica":       5.2,
	"times new roman": 4.9,
	"georgia":         5.3,
	"verdana":         5.8,
	"courier new":     6.0,
	"consolas":        5.5,
}

// NewFontMetricsOracle builds the oracle from the built-in table plus
// configured extras (extras win on collision).
func NewFontMetricsOracle(extra map[string]float64) *FontMetricsOracle {
	factors := make(map[string]float64, len(builtinMetrics)+len(extra))
	for family, f := range builtinMetrics {
		factors[family] = f
	}
	for family, f := range extra {
		factors[strings.ToLower(family)] = f
	}
	return &FontMetricsOracle{factors: factors}
}

func (o *FontMetricsOracle) Measure(family string, bold, italic bool, halfPointSize int, text string) int {
	factor, known := o.factors[strings.ToLower(family)]
	if !known {
		return 0
	}
	if halfPointSize <= 0 {
		halfPointSize = 22 // 11pt default
	}
	width := factor * float64(halfPointSize) * float64(len([]rune(text)))
	if bold {
		width *= 1.05
	}
	if italic {
		width *= 1.02
	}
	return int(width)
}

// TabSpan is the computed rendering of one literal tab character.
type TabSpan struct {
	Width       int
	Leader      wml.LeaderChar
	LeaderCount int
}

// TabLayoutEngine computes tab widths for one configuration.
type TabLayoutEngine struct {
	interval int
	fallback int
	oracle   TextWidthOracle
}

func NewTabLayoutEngine(cfg config.TabsConfig, oracle TextWidthOracle) *TabLayoutEngine {
	return &TabLayoutEngine{
		interval: cfg.DefaultInterval,
		fallback: cfg.FallbackWidth,
		oracle:   oracle,
	}
}

// tabAtom is the flattened view of paragraph content the scanner works on.
type tabAtom struct {
	isTab   bool
	isBreak bool
	text    string
	props   wml.RunProperties
}

func flattenForTabs(content []wml.Inline, atoms []tabAtom) []tabAtom {
	for i := range content {
		switch content[i].Kind {
		case wml.InlineRun:
			r := content[i].Run
			if r == nil {
				continue
			}
			for _, c := range r.Content {
				switch c.Kind {
				case wml.RunText:
					atoms = append(atoms, tabAtom{text: c.Text, props: r.Props})
				case wml.RunTab:
					atoms = append(atoms, tabAtom{isTab: true, props: r.Props})
				case wml.RunBreak:
					atoms = append(atoms, tabAtom{isBreak: true})
				}
			}
		case wml.InlineHyperlink:
			if content[i].Hyperlink != nil {
				atoms = flattenForTabs(content[i].Hyperlink.Content, atoms)
			}
		case wml.InlineRevision:
			if content[i].Revision != nil {
				atoms = flattenForTabs(content[i].Revision.Content, atoms)
			}
		}
	}
	return atoms
}

// Layout computes a TabSpan for every literal tab in the paragraph, in
// document order. Scanning is left to right with a running cursor; each text
// atom advances the cursor by its measured width, breaks reset it to the
// left indent.
func (t *TabLayoutEngine) Layout(p *wml.Paragraph) []TabSpan {
	atoms := flattenForTabs(p.Content, nil)

	var explicit []wml.TabStop
	for _, stop := range p.Props.Tabs {
		if stop.Alignment == wml.TabAlignBar || stop.Alignment == wml.TabAlignClear {
			// bar stops draw a rule, clear stops remove inherited ones -
			// neither is a landing candidate for tab advance
			continue
		}
		explicit = append(explicit, stop)
	}
	sort.SliceStable(explicit, func(i, j int) bool { return explicit[i].Position < explicit[j].Position })

	left := p.Props.Indent.Left
	cursor := left + p.Props.Indent.FirstLine - p.Props.Indent.Hanging

	var spans []TabSpan
	for i := 0; i < len(atoms); i++ {
		a := atoms[i]
		switch {
		case a.isBreak:
			cursor = left
		case !a.isTab:
			cursor += t.oracle.Measure(a.props.FontFamily, a.props.Bold, a.props.Italic, a.props.SizeHalfPoints, a.text)
		default:
			span := t.layoutOne(atoms[i+1:], explicit, left, &cursor, a.props)
			spans = append(spans, span)
		}
	}
	return spans
}

func (t *TabLayoutEngine) layoutOne(following []tabAtom, explicit []wml.TabStop, left int, cursor *int, props wml.RunProperties) TabSpan {
	stop, found := t.nextStop(explicit, left, *cursor)
	if !found {
		// no stop beyond the cursor is not an error
		span := t.leaderize(TabSpan{Width: t.fallback}, wml.TabStop{}, props)
		*cursor += span.Width
		return span
	}

	// width of the text that will land after this tab, up to the next
	// tab or break
	measured := 0
	decimalHead := 0
	headDone := false
	for _, a := range following {
		if a.isTab || a.isBreak {
			break
		}
		measured += t.oracle.Measure(a.props.FontFamily, a.props.Bold, a.props.Italic, a.props.SizeHalfPoints, a.text)
		if !headDone {
			if dot := strings.IndexByte(a.text, '.'); dot >= 0 {
				decimalHead += t.oracle.Measure(a.props.FontFamily, a.props.Bold, a.props.Italic, a.props.SizeHalfPoints, a.text[:dot])
				headDone = true
			} else {
				decimalHead += t.oracle.Measure(a.props.FontFamily, a.props.Bold, a.props.Italic, a.props.SizeHalfPoints, a.text)
			}
		}
	}

	var width int
	switch stop.Alignment {
	case wml.TabAlignRight, wml.TabAlignEnd:
		width = stop.Position - measured - *cursor
	case wml.TabAlignCenter:
		width = stop.Position - measured/2 - *cursor
	case wml.TabAlignDecimal:
		// mantissa right-aligned against the decimal point at the stop
		width = stop.Position - decimalHead - *cursor
	default: // left / start
		width = stop.Position - *cursor
	}
	if width < 0 {
		width = 0
	}
	*cursor += width

	return t.leaderize(TabSpan{Width: width}, stop, props)
}

// nextStop locates the next landing stop: the first explicit stop at or
// after the cursor when the paragraph has a list (a stop exactly at the
// cursor lands there with zero width), otherwise the implicit ladder at the
// default interval strictly beyond the cursor.
func (t *TabLayoutEngine) nextStop(explicit []wml.TabStop, left, cursor int) (wml.TabStop, bool) {
	if len(explicit) > 0 {
		for _, stop := range explicit {
			if stop.Position >= cursor {
				return stop, true
			}
		}
		return wml.TabStop{}, false
	}
	if t.interval <= 0 {
		return wml.TabStop{}, false
	}
	pos := left
	for pos <= cursor {
		pos += t.interval
	}
	return wml.TabStop{Position: pos, Alignment: wml.TabAlignLeft}, true
}

// leaderize fills the computed gap with repeated leader glyphs sized by the
// same oracle. A zero glyph width (unknown font) leaves the gap unfilled.
func (t *TabLayoutEngine) leaderize(span TabSpan, stop wml.TabStop, props wml.RunProperties) TabSpan {
	span.Leader = stop.Leader
	if stop.Leader == "" || stop.Leader == wml.LeaderNone || span.Width <= 0 {
		span.Leader = wml.LeaderNone
		return span
	}
	glyph := t.oracle.Measure(props.FontFamily, props.Bold, props.Italic, props.SizeHalfPoints, LeaderGlyph(stop.Leader))
	if glyph <= 0 {
		span.Leader = wml.LeaderNone
		return span
	}
	span.LeaderCount = span.Width / glyph
	return span
}

// LeaderGlyph returns the character a leader repeats.
func LeaderGlyph(leader wml.LeaderChar) string {
	switch leader {
	case wml.LeaderDot:
		return "."
	case wml.LeaderHyphen:
		return "-"
	case wml.LeaderUnderscore:
		return "_"
	}
	return ""
}
