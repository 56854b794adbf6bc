package change

import (
	"fmt"
	"sort"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
)

// maxRules is bounded by the width of the transition table bitset.
const maxRules = 64

type Options struct {
	Taxonomy landcover.Taxonomy
	Rules    []landcover.TransitionRule
	NoData   landcover.ClassCode
}

// Engine evaluates a fixed rule list against before/after mask pairs. It holds
// no mutable state after construction and is safe for concurrent use.
type Engine struct {
	rules  []landcover.TransitionRule
	noData landcover.ClassCode
	known  [256]bool

	// transitions[before<<8|after] has bit i set when rule i matches the pair.
	transitions []uint64
}

func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Taxonomy.Validate(opts.NoData); err != nil {
		return nil, err
	}
	if len(opts.Rules) == 0 {
		return nil, landcover.NewConfigurationError("no transition rules configured")
	}
	if len(opts.Rules) > maxRules {
		return nil, landcover.NewConfigurationError("at most %d transition rules are supported, got %d", maxRules, len(opts.Rules))
	}

	e := &Engine{
		rules:       append([]landcover.TransitionRule(nil), opts.Rules...),
		noData:      opts.NoData,
		transitions: make([]uint64, 256*256),
	}
	for code := range opts.Taxonomy {
		e.known[code] = true
	}

	seen := make(map[string]bool, len(opts.Rules))
	for i, rule := range e.rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		id := rule.Identifier()
		if seen[id] {
			return nil, landcover.NewConfigurationError("duplicate rule %q", id)
		}
		seen[id] = true
		for _, code := range append(append([]landcover.ClassCode(nil), rule.From...), rule.To...) {
			if !e.known[code] {
				return nil, landcover.NewConfigurationError("rule %q references class %d outside the taxonomy", rule.Name, code)
			}
		}
		bit := uint64(1) << uint(i)
		for _, from := range rule.From {
			for _, to := range rule.To {
				e.transitions[int(from)<<8|int(to)] |= bit
			}
		}
	}
	return e, nil
}

func (e *Engine) Rules() []landcover.TransitionRule {
	return e.rules
}

// Detection holds one change mask per rule, in rule order. UnknownPixels
// counts pixels with an unknown code in the before mask, the after mask, or
// both.
type Detection struct {
	Masks         []ChangeMask
	UnknownPixels int
	UnknownCodes  []landcover.ClassCode
}

// Unknown returns the recovered unknown-code condition, or nil.
func (d Detection) Unknown() error {
	if d.UnknownPixels == 0 {
		return nil
	}
	return &landcover.UnknownClassCodeError{Codes: d.UnknownCodes, Count: d.UnknownPixels}
}

// Detect compares two masks of the same tile. A pixel carrying a code outside
// the taxonomy on either side matches no rule and is only counted.
func (e *Engine) Detect(before, after landcover.Mask) (Detection, error) {
	if !before.Valid() || !after.Valid() {
		return Detection{}, fmt.Errorf("malformed mask: before %d px for %s, after %d px for %s",
			len(before.Pix), before.Shape(), len(after.Pix), after.Shape())
	}
	if !before.SameShape(after) {
		return Detection{}, &landcover.ShapeMismatchError{Before: before.Shape(), After: after.Shape()}
	}

	masks := make([]ChangeMask, len(e.rules))
	for i := range e.rules {
		masks[i] = ChangeMask{
			Rule:   e.rules[i],
			Width:  before.Width,
			Height: before.Height,
			Bits:   make([]bool, before.Len()),
		}
	}

	var unknown [256]int
	unknownPixels := 0
	for p := range before.Pix {
		b, a := before.Pix[p], after.Pix[p]
		if !e.known[b] || !e.known[a] {
			// excluded from every rule
			if !e.known[b] {
				unknown[b]++
			}
			if !e.known[a] {
				unknown[a]++
			}
			unknownPixels++
			continue
		}
		set := e.transitions[int(b)<<8|int(a)]
		for set != 0 {
			i := trailingZeros(set)
			masks[i].Bits[p] = true
			masks[i].count++
			set &= set - 1
		}
	}

	det := Detection{Masks: masks, UnknownPixels: unknownPixels}
	for code, n := range unknown {
		if n > 0 {
			det.UnknownCodes = append(det.UnknownCodes, landcover.ClassCode(code))
		}
	}
	sort.Slice(det.UnknownCodes, func(i, j int) bool { return det.UnknownCodes[i] < det.UnknownCodes[j] })
	return det, nil
}
