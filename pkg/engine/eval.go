package engine

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/viterin/vek/vek32"
)

// matchCond evaluates one condition node against a record. An (operator,
// domain) pairing without an evaluation rule is a binding defect and reported
// as an illegal-state error; the typed factories above this layer make that
// unreachable in practice.
func matchCond(c *compiledCond, rec *Record) (bool, error) {
	switch c.op {
	case opAll:
		for _, child := range c.children {
			ok, err := matchCond(child, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case opAny:
		for _, child := range c.children {
			ok, err := matchCond(child, rec)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case opNull:
		return rec.Get(c.prop).IsNull(), nil
	case opNotNull:
		return !rec.Get(c.prop).IsNull(), nil
	case opNearest:
		// Distance ranking happens at the query level; as a predicate the
		// condition only requires the vector to be present.
		return rec.Get(c.prop).Type == TypeFloatVector, nil
	}

	v := rec.Get(c.prop)

	switch c.domain {
	case TypeInt:
		if v.Type != TypeInt {
			return false, nil
		}
		return matchInt(c, v.Int)
	case TypeFloat:
		if v.Type != TypeFloat {
			return false, nil
		}
		return matchFloat(c, v.Float)
	case TypeString:
		if v.Type != TypeString {
			return false, nil
		}
		return matchString(c, v.Str)
	case TypeBytes:
		if v.Type != TypeBytes {
			return false, nil
		}
		return matchBytes(c, v.Bytes)
	case TypeStringVector:
		if v.Type != TypeStringVector {
			return false, nil
		}
		return matchStringVector(c, v.Strings)
	}
	return false, invalidCond(c)
}

func invalidCond(c *compiledCond) error {
	return &Error{Code: CodeIllegalState,
		Op:  fmt.Sprintf("evaluate %s on %s property %d", c.op, c.domain, c.prop),
		Err: ErrInvalidCondition}
}

func matchInt(c *compiledCond, v int64) (bool, error) {
	switch c.op {
	case opEqual:
		return v == c.i1, nil
	case opNotEqual:
		return v != c.i1, nil
	case opLess:
		return v < c.i1, nil
	case opLessOrEq:
		return v <= c.i1, nil
	case opGreater:
		return v > c.i1, nil
	case opGreaterOrEq:
		return v >= c.i1, nil
	case opBetween:
		return v >= c.i1 && v <= c.i2, nil
	case opIn:
		for _, x := range c.ints {
			if v == x {
				return true, nil
			}
		}
		return false, nil
	case opNotIn:
		for _, x := range c.ints {
			if v == x {
				return false, nil
			}
		}
		return true, nil
	}
	return false, invalidCond(c)
}

func matchFloat(c *compiledCond, v float64) (bool, error) {
	switch c.op {
	case opLess:
		return v < c.f1, nil
	case opLessOrEq:
		return v <= c.f1, nil
	case opGreater:
		return v > c.f1, nil
	case opGreaterOrEq:
		return v >= c.f1, nil
	case opBetween:
		return v >= c.f1 && v <= c.f2, nil
	}
	return false, invalidCond(c)
}

func matchString(c *compiledCond, v string) (bool, error) {
	operand := c.str
	if !c.caseSens {
		v = strings.ToLower(v)
		operand = strings.ToLower(operand)
	}
	switch c.op {
	case opEqual:
		return v == operand, nil
	case opNotEqual:
		return v != operand, nil
	case opLess:
		return v < operand, nil
	case opLessOrEq:
		return v <= operand, nil
	case opGreater:
		return v > operand, nil
	case opGreaterOrEq:
		return v >= operand, nil
	case opContains:
		return strings.Contains(v, operand), nil
	case opStartsWith:
		return strings.HasPrefix(v, operand), nil
	case opEndsWith:
		return strings.HasSuffix(v, operand), nil
	case opIn:
		for _, s := range c.strs {
			if !c.caseSens {
				s = strings.ToLower(s)
			}
			if v == s {
				return true, nil
			}
		}
		return false, nil
	}
	return false, invalidCond(c)
}

func matchBytes(c *compiledCond, v []byte) (bool, error) {
	cmp := bytes.Compare(v, c.blob)
	switch c.op {
	case opEqual:
		return cmp == 0, nil
	case opLess:
		return cmp < 0, nil
	case opLessOrEq:
		return cmp <= 0, nil
	case opGreater:
		return cmp > 0, nil
	case opGreaterOrEq:
		return cmp >= 0, nil
	}
	return false, invalidCond(c)
}

func matchStringVector(c *compiledCond, vs []string) (bool, error) {
	if c.op != opAnyEquals {
		return false, invalidCond(c)
	}
	operand := c.str
	if !c.caseSens {
		operand = strings.ToLower(operand)
	}
	for _, s := range vs {
		if !c.caseSens {
			s = strings.ToLower(s)
		}
		if s == operand {
			return true, nil
		}
	}
	return false, nil
}

// nnDistance computes the Euclidean distance between the record's vector and
// the condition's query vector. Dimension mismatches rank last.
func nnDistance(c *compiledCond, rec *Record) float64 {
	v := rec.Get(c.prop)
	if v.Type != TypeFloatVector || len(v.Floats) != len(c.vector) {
		return math.Inf(1)
	}
	return float64(vek32.Distance(v.Floats, c.vector))
}

// rankNearest keeps the maxHits records closest to the query vector,
// preserving ascending distance order.
func rankNearest(recs []*Record, scores []float64, maxHits int) []*Record {
	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	if maxHits > 0 && maxHits < len(idx) {
		idx = idx[:maxHits]
	}
	out := make([]*Record, len(idx))
	for i, j := range idx {
		out[i] = recs[j]
	}
	return out
}

// lessByOrders compares two records by the accumulated order directives,
// earlier directives first.
func lessByOrders(orders []orderSpec, a, b *Record) bool {
	for _, o := range orders {
		cmp := compareForOrder(o, a.Get(o.prop), b.Get(o.prop))
		if cmp == 0 {
			continue
		}
		return cmp < 0
	}
	return false
}

func compareForOrder(o orderSpec, va, vb Value) int {
	// Null placement is independent of direction.
	switch {
	case va.IsNull() && vb.IsNull():
		return 0
	case va.IsNull():
		if o.flags&OrderNullsLast != 0 {
			return 1
		}
		return -1
	case vb.IsNull():
		if o.flags&OrderNullsLast != 0 {
			return -1
		}
		return 1
	}

	cmp := compareValues(va, vb, o.flags&OrderCaseInsensitive != 0)
	if o.flags&OrderDescending != 0 {
		cmp = -cmp
	}
	return cmp
}

// compareValues orders two non-null values of the same domain. Values of
// different domains compare by domain tag so sorting stays total.
func compareValues(a, b Value, foldCase bool) int {
	if a.Type != b.Type {
		return int(a.Type) - int(b.Type)
	}
	switch a.Type {
	case TypeInt:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		}
		return 0
	case TypeFloat:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		}
		return 0
	case TypeString:
		as, bs := a.Str, b.Str
		if foldCase {
			as, bs = strings.ToLower(as), strings.ToLower(bs)
		}
		return strings.Compare(as, bs)
	case TypeBytes:
		return bytes.Compare(a.Bytes, b.Bytes)
	}
	return 0
}
