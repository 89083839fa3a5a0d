package projector

import "fmt"

// MatchPolicy decides which pattern lengths the matcher tries and how many
// occurrences make a pattern count as found.
type MatchPolicy interface {
	Name() string
	// Lengths returns the pattern lengths to try, longest first.
	Lengths() ([]int, error)
	// MinOccurrences is the total occurrence count (query included) needed to accept a length.
	MinOccurrences() int
}

// FixedLength always matches on a single pattern length.
type FixedLength struct {
	Length int
}

func (p FixedLength) Name() string { return fmt.Sprintf("fixed(%d)", p.Length) }

func (p FixedLength) Lengths() ([]int, error) {
	if p.Length <= 0 {
		return nil, fmt.Errorf("fixed length %d: %w", p.Length, ErrInvalidParameter)
	}
	return []int{p.Length}, nil
}

func (p FixedLength) MinOccurrences() int { return 3 }

// VariableLength tries Max down to Min and keeps the longest length that matched.
type VariableLength struct {
	Max int
	Min int
}

func (p VariableLength) Name() string { return fmt.Sprintf("variable(%d-%d)", p.Max, p.Min) }

func (p VariableLength) Lengths() ([]int, error) {
	if p.Min <= 0 || p.Max < p.Min {
		return nil, fmt.Errorf("variable length %d..%d: %w", p.Max, p.Min, ErrInvalidParameter)
	}
	lengths := make([]int, 0, p.Max-p.Min+1)
	for l := p.Max; l >= p.Min; l-- {
		lengths = append(lengths, l)
	}
	return lengths, nil
}

func (p VariableLength) MinOccurrences() int { return 3 }

// DefaultFixed and DefaultVariable are the stock policy settings.
var (
	DefaultFixed    = FixedLength{Length: 6}
	DefaultVariable = VariableLength{Max: 8, Min: 6}
)

// ParsePolicy maps a config name to a policy.
func ParsePolicy(name string, length, maxLength, minLength int) (MatchPolicy, error) {
	switch name {
	case "", "fixed":
		return FixedLength{Length: length}, nil
	case "variable":
		return VariableLength{Max: maxLength, Min: minLength}, nil
	default:
		return nil, fmt.Errorf("unknown match policy %q: %w", name, ErrInvalidParameter)
	}
}
