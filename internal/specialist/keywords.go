// Package specialist assigns escalated transactions to domain lanes and
// resolves those lanes against a registry of specialists.
package specialist

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// Pattern is a keyword rule that claims a transaction for a lane.
type Pattern struct {
	Name     string
	Lane     model.SpecialistLane
	Regex    string
	Priority int // Higher priority patterns are checked first
}

// CompiledPattern holds a compiled regex pattern with metadata.
type CompiledPattern struct {
	compiledRegex *regexp.Regexp
	Pattern
}

// Match is the pattern that claimed a description.
type Match struct {
	PatternName string
	Lane        model.SpecialistLane
	Keyword     string
}

// Detector matches descriptions against lane keyword patterns in priority
// order. Patterns are fixed at construction, so a Detector is safe for
// concurrent use.
type Detector struct {
	patterns []CompiledPattern
}

// NewDetector compiles patterns into a detector.
func NewDetector(patterns []Pattern) (*Detector, error) {
	compiled, err := compile(patterns)
	if err != nil {
		return nil, err
	}
	return &Detector{patterns: compiled}, nil
}

// Detect returns the highest priority pattern matching description, or nil.
func (d *Detector) Detect(description string) *Match {
	text := strings.TrimSpace(description)
	if text == "" {
		return nil
	}

	for _, p := range d.patterns {
		if kw := p.compiledRegex.FindString(text); kw != "" {
			return &Match{
				PatternName: p.Name,
				Lane:        p.Lane,
				Keyword:     kw,
			}
		}
	}
	return nil
}

func compile(patterns []Pattern) ([]CompiledPattern, error) {
	compiled := make([]CompiledPattern, 0, len(patterns))
	for _, p := range patterns {
		if !IsKnownLane(p.Lane) {
			return nil, fmt.Errorf("pattern %s: unknown lane %q", p.Name, p.Lane)
		}

		regexStr := p.Regex
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr
		}
		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Name, err)
		}

		compiled = append(compiled, CompiledPattern{
			Pattern:       p,
			compiledRegex: regex,
		})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})
	return compiled, nil
}
