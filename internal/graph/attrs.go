package graph

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	reservedNodeKeys = map[string]struct{}{
		"id": {}, "label": {}, "color": {}, "radius": {}, "image": {}, "hover": {},
	}
	reservedLinkKeys = map[string]struct{}{
		"source": {}, "target": {}, "hover": {}, "weight": {}, "color": {},
	}
)

// ComputeHoverText fills Hover on every node and link with a multi-line
// summary of the attributes that have no visual role.
func (g *Graph) ComputeHoverText() {
	for _, n := range g.nodes {
		var sb strings.Builder
		sb.WriteString(n.Label)
		writeAttrLines(&sb, n.Attrs, reservedNodeKeys)
		n.Hover = sb.String()
	}
	for _, l := range g.links {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s --(%s)--> %s", l.Source, strconv.FormatFloat(l.Weight, 'g', -1, 64), l.Target)
		writeAttrLines(&sb, l.Attrs, reservedLinkKeys)
		l.Hover = sb.String()
	}
}

func writeAttrLines(sb *strings.Builder, attrs Attrs, reserved map[string]struct{}) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if _, skip := reserved[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "\n %s ->\t %v", k, attrs[k])
	}
}

// ColorNodesBy assigns one palette color per distinct value of the node
// attribute key. Nodes missing the key share a single class. It returns the
// number of classes; over an empty graph it does nothing and returns 0.
func (g *Graph) ColorNodesBy(key string) int {
	values := make([]any, len(g.nodes))
	for i, n := range g.nodes {
		values[i], _ = n.Attr(key)
	}
	colors, classes := classColors(values)
	for i, n := range g.nodes {
		n.Color = colors[i]
	}
	return classes
}

// ColorLinksBy is ColorNodesBy for links.
func (g *Graph) ColorLinksBy(key string) int {
	values := make([]any, len(g.links))
	for i, l := range g.links {
		values[i], _ = l.Attr(key)
	}
	colors, classes := classColors(values)
	for i, l := range g.links {
		l.Color = colors[i]
	}
	return classes
}

// RadiusBy rescales every node radius linearly into [0, 1.5*baseRadius]
// according to the node's numeric value for key. Missing or non-numeric
// values count as 0, as do NaN and infinities. When all values are equal
// every radius becomes 0.
func (g *Graph) RadiusBy(key string, baseRadius float64) {
	if len(g.nodes) == 0 {
		return
	}
	values := make([]float64, len(g.nodes))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, n := range g.nodes {
		v, _ := n.Attr(key)
		f, _ := toFloat(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		values[i] = f
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if hi-lo == 0 {
		hi++
	}
	for i, n := range g.nodes {
		n.Radius = baseRadius * (1.5 * (values[i] - lo) / (hi - lo))
	}
}

type valueClass struct {
	key  string
	rank int
	num  float64
	str  string
}

// classColors partitions values into equivalence classes and returns the
// color of every value together with the number of classes. Numbers sort
// before strings, strings before booleans, booleans before anything else,
// and the nil class comes last.
func classColors(values []any) ([]string, int) {
	out := make([]string, len(values))
	if len(values) == 0 {
		return out, 0
	}
	keys := make([]string, len(values))
	seen := make(map[string]valueClass)
	for i, v := range values {
		c := classify(v)
		keys[i] = c.key
		if _, ok := seen[c.key]; !ok {
			seen[c.key] = c
		}
	}
	classes := make([]valueClass, 0, len(seen))
	for _, c := range seen {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		a, b := classes[i], classes[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.rank == 0 && a.num != b.num {
			return a.num < b.num
		}
		return a.str < b.str
	})

	palette := Palette(len(classes))
	byKey := make(map[string]string, len(classes))
	for i, c := range classes {
		byKey[c.key] = palette[i]
	}
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, len(classes)
}

func classify(v any) valueClass {
	if v == nil {
		return valueClass{key: "nil", rank: 4}
	}
	if f, ok := toFloat(v); ok {
		s := strconv.FormatFloat(f, 'g', -1, 64)
		return valueClass{key: "n:" + s, rank: 0, num: f, str: s}
	}
	switch t := v.(type) {
	case string:
		return valueClass{key: "s:" + t, rank: 1, str: t}
	case bool:
		s := strconv.FormatBool(t)
		return valueClass{key: "b:" + s, rank: 2, str: s}
	}
	s := fmt.Sprintf("%T:%v", v, v)
	return valueClass{key: "o:" + s, rank: 3, str: s}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case uint32:
		return float64(t), true
	}
	return 0, false
}
