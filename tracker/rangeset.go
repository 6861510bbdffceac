package tracker

import (
	"fmt"
	"strconv"
	"strings"
)

// maxWildcardValue is the upper bound substituted for the "*" wildcard in
// a range expression.
const maxWildcardValue = 1<<31 - 1

// ErrInvalidRange is returned by ParseRangeSet when the input string does
// not match the range grammar (a trailing dash, a stray non-digit rune, or
// a dash with no number before it).
type ErrInvalidRange struct {
	Input string
}

func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid range %q", e.Input)
}

// interval is one inclusive closed range.
type interval struct {
	min, max int64
}

// RangeSet is an ordered sequence of inclusive closed integer intervals.
// No merging or normalization is performed: two adjacent or overlapping
// intervals are kept distinct if they were added distinct. Order is
// significant for String/round-tripping.
type RangeSet struct {
	items []interval
}

// Prepend inserts a new interval at the head of the set, swapping min/max
// if given in the wrong order. This mirrors the construction-time
// semantics of the original head-inserted range list; callers that need
// left-to-right text order must build in reverse. ParseRangeSet does not
// use Prepend: it appends at the tail in text order.
func (r *RangeSet) Prepend(min, max int64) {
	if min > max {
		min, max = max, min
	}
	r.items = append([]interval{{min, max}}, r.items...)
}

// append adds an interval at the tail, preserving left-to-right text
// order. Used internally by the parser, which reads ranges in the order
// they appear in the source string.
func (r *RangeSet) append(min, max int64) {
	if min > max {
		min, max = max, min
	}
	r.items = append(r.items, interval{min, max})
}

// Contains reports whether v falls within any interval of the set.
func (r *RangeSet) Contains(v int64) bool {
	if r == nil {
		return false
	}
	for _, it := range r.items {
		if v >= it.min && v <= it.max {
			return true
		}
	}
	return false
}

// Min returns the smallest bound across all intervals, or 0 for an empty
// set.
func (r *RangeSet) Min() int64 {
	if r == nil || len(r.items) == 0 {
		return 0
	}
	v := r.items[0].min
	for _, it := range r.items[1:] {
		if it.min < v {
			v = it.min
		}
	}
	return v
}

// Max returns the largest bound across all intervals, or 0 for an empty
// set.
func (r *RangeSet) Max() int64 {
	if r == nil || len(r.items) == 0 {
		return 0
	}
	v := r.items[0].max
	for _, it := range r.items[1:] {
		if it.max > v {
			v = it.max
		}
	}
	return v
}

// Width returns the total count of integers covered, counting overlaps
// more than once (intervals are not merged).
func (r *RangeSet) Width() int64 {
	if r == nil {
		return 0
	}
	var w int64
	for _, it := range r.items {
		w += it.max - it.min + 1
	}
	return w
}

// Duplicate returns a structurally independent copy.
func (r *RangeSet) Duplicate() *RangeSet {
	if r == nil {
		return &RangeSet{}
	}
	out := &RangeSet{items: make([]interval, len(r.items))}
	copy(out.items, r.items)
	return out
}

// Items returns the intervals in order, as (min, max) pairs. Used by the
// priority-file emitter, which needs to walk every covered field number.
func (r *RangeSet) Items() [][2]int64 {
	if r == nil {
		return nil
	}
	out := make([][2]int64, len(r.items))
	for i, it := range r.items {
		out[i] = [2]int64{it.min, it.max}
	}
	return out
}

// String renders the set in head-first iteration order, "min" when
// min==max or "min-max" otherwise, comma-separated.
func (r *RangeSet) String() string {
	if r == nil || len(r.items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, it := range r.items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(it.min, 10))
		if it.min != it.max {
			b.WriteByte('-')
			b.WriteString(strconv.FormatInt(it.max, 10))
		}
	}
	return b.String()
}

// ParseRangeSet parses the grammar `<list> := <elem>(,<elem>)*`,
// `<elem> := N | N-N`, with "*" alone meaning [0, 2^31-1]. Whitespace is
// ignored between tokens. Empty input yields an empty, non-nil set with no
// error. A trailing dash or any character outside digits/comma/dash/space
// is an ErrInvalidRange.
func ParseRangeSet(s string) (*RangeSet, error) {
	if strings.TrimSpace(s) == "" {
		return &RangeSet{}, nil
	}
	if s == "*" {
		rs := &RangeSet{}
		rs.append(0, maxWildcardValue)
		return rs, nil
	}

	rs := &RangeSet{}
	var haveLow bool
	var low int64
	var sawDigitsSinceSep = false

	flushNumber := func(v int64, afterDash bool) error {
		if afterDash {
			if !haveLow {
				return &ErrInvalidRange{Input: s}
			}
			rs.append(low, v)
			haveLow = false
		} else {
			if haveLow {
				// Two bare numbers with nothing between them: treat the
				// pending low as a single-element range and start a new one.
				rs.append(low, low)
			}
			low = v
			haveLow = true
		}
		return nil
	}

	i := 0
	n := len(s)
	pendingDash := false
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < n && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			v, err := strconv.ParseInt(s[i:j], 10, 64)
			if err != nil {
				return nil, &ErrInvalidRange{Input: s}
			}
			if err := flushNumber(v, pendingDash); err != nil {
				return nil, err
			}
			pendingDash = false
			sawDigitsSinceSep = true
			i = j
		case c == ',':
			if haveLow {
				rs.append(low, low)
				haveLow = false
			}
			pendingDash = false
			sawDigitsSinceSep = false
			i++
		case c == '-':
			if !haveLow {
				return nil, &ErrInvalidRange{Input: s}
			}
			pendingDash = true
			sawDigitsSinceSep = false
			i++
		default:
			return nil, &ErrInvalidRange{Input: s}
		}
	}
	if pendingDash {
		return nil, &ErrInvalidRange{Input: s}
	}
	if haveLow {
		rs.append(low, low)
	}
	_ = sawDigitsSinceSep
	return rs, nil
}
