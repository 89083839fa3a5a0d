package projector

import (
	"fmt"
	"strings"

	"PatternSentinel/internal/model"
)

// FindMatches returns prior locations whose movement equals the pattern of
// moves leading into history index queryEnd, in left-to-right discovery order.
//
// A start k is only returned when k+length < queryEnd, so the moves replayed
// after a match never reach the query point. Lengths are tried longest first
// and the first length that yields a valid match wins; shorter lengths are
// only a fallback. An empty result is not an error.
func FindMatches(movement model.Movement, queryEnd int, policy MatchPolicy) ([]model.PatternMatch, error) {
	if queryEnd < 0 || queryEnd > len(movement) {
		return nil, fmt.Errorf("query end %d of %d moves: %w", queryEnd, len(movement), ErrInvalidIndex)
	}
	lengths, err := policy.Lengths()
	if err != nil {
		return nil, err
	}
	if shortest := lengths[len(lengths)-1]; queryEnd < shortest {
		return nil, fmt.Errorf("query end %d, need %d moves: %w", queryEnd, shortest, ErrInsufficientData)
	}

	haystack := movement.String()
	var matches []model.PatternMatch
	for _, length := range lengths {
		if queryEnd < length {
			continue
		}
		own := queryEnd - length
		found := occurrences(haystack, haystack[own:queryEnd])
		if len(found) < policy.MinOccurrences() {
			continue
		}
		for _, k := range found {
			if k == own || k+length >= queryEnd {
				continue
			}
			matches = append(matches, model.PatternMatch{StartIndex: k, PatternLength: length})
		}
		if len(matches) > 0 {
			break
		}
	}
	return matches, nil
}

// occurrences lists every start offset of needle, overlapping ones included.
func occurrences(haystack, needle string) []int {
	var idx []int
	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return idx
		}
		idx = append(idx, from+i)
		from += i + 1
	}
}
