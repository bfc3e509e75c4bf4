// Package inventory holds the vocabulary shared by the inventory intelligence
// components: grades, error taxonomy and descriptive statistics.
package inventory

import (
	"fmt"
	"strings"
)

// ABCGrade is the revenue-contribution grade of a SKU.
type ABCGrade string

// XYZGrade is the demand-variability grade of a SKU.
type XYZGrade string

// CombinedGrade is the two-letter ABC+XYZ code, e.g. "AX".
type CombinedGrade string

const (
	GradeA ABCGrade = "A"
	GradeB ABCGrade = "B"
	GradeC ABCGrade = "C"
)

const (
	GradeX XYZGrade = "X"
	GradeY XYZGrade = "Y"
	GradeZ XYZGrade = "Z"
)

// ABCGrades and XYZGrades list the grades from most to least valuable.
var (
	ABCGrades = []ABCGrade{GradeA, GradeB, GradeC}
	XYZGrades = []XYZGrade{GradeX, GradeY, GradeZ}
)

// Valid reports whether g is one of A, B, C.
func (g ABCGrade) Valid() bool {
	return g == GradeA || g == GradeB || g == GradeC
}

// Rank is 0 for A, 1 for B, 2 for C and 3 for anything else.
func (g ABCGrade) Rank() int {
	switch g {
	case GradeA:
		return 0
	case GradeB:
		return 1
	case GradeC:
		return 2
	}
	return 3
}

// Valid reports whether g is one of X, Y, Z.
func (g XYZGrade) Valid() bool {
	return g == GradeX || g == GradeY || g == GradeZ
}

// Rank is 0 for X, 1 for Y, 2 for Z and 3 for anything else.
func (g XYZGrade) Rank() int {
	switch g {
	case GradeX:
		return 0
	case GradeY:
		return 1
	case GradeZ:
		return 2
	}
	return 3
}

// Combine joins an ABC and an XYZ grade.
func Combine(abc ABCGrade, xyz XYZGrade) CombinedGrade {
	return CombinedGrade(string(abc) + string(xyz))
}

// CombinedGrades lists all nine codes from AX (highest) to CZ (lowest).
func CombinedGrades() []CombinedGrade {
	out := make([]CombinedGrade, 0, len(ABCGrades)*len(XYZGrades))
	for _, abc := range ABCGrades {
		for _, xyz := range XYZGrades {
			out = append(out, Combine(abc, xyz))
		}
	}
	return out
}

// ParseCombinedGrade validates a two-letter code such as "by" or "AZ".
func ParseCombinedGrade(code string) (CombinedGrade, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", fmt.Errorf("combined grade %q must have two letters: %w", code, ErrInvalidArgument)
	}
	abc, xyz := ABCGrade(code[:1]), XYZGrade(code[1:])
	if !abc.Valid() || !xyz.Valid() {
		return "", fmt.Errorf("unknown combined grade %q: %w", code, ErrInvalidArgument)
	}
	return Combine(abc, xyz), nil
}

// ABC returns the revenue grade part of the code.
func (g CombinedGrade) ABC() ABCGrade {
	if len(g) != 2 {
		return ""
	}
	return ABCGrade(g[:1])
}

// XYZ returns the variability grade part of the code.
func (g CombinedGrade) XYZ() XYZGrade {
	if len(g) != 2 {
		return ""
	}
	return XYZGrade(g[1:])
}

// Rank orders the nine grades: AX=0 ... CZ=8. ABC dominates, XYZ breaks ties.
// Unknown codes rank after CZ.
func (g CombinedGrade) Rank() int {
	abc, xyz := g.ABC().Rank(), g.XYZ().Rank()
	if abc > 2 || xyz > 2 {
		return 9
	}
	return abc*3 + xyz
}
