package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinedGradeRankOrder(t *testing.T) {
	grades := CombinedGrades()
	require.Len(t, grades, 9)
	assert.Equal(t, CombinedGrade("AX"), grades[0])
	assert.Equal(t, CombinedGrade("CZ"), grades[8])

	for i, g := range grades {
		assert.Equal(t, i, g.Rank(), "rank of %s", g)
	}
	assert.Equal(t, 9, CombinedGrade("QQ").Rank())
}

func TestParseCombinedGrade(t *testing.T) {
	g, err := ParseCombinedGrade(" by ")
	require.NoError(t, err)
	assert.Equal(t, CombinedGrade("BY"), g)
	assert.Equal(t, GradeB, g.ABC())
	assert.Equal(t, GradeY, g.XYZ())

	_, err = ParseCombinedGrade("AQ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseCombinedGrade("A")
	assert.True(t, IsInvalidArgument(err))
}
