package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsWithoutLeakingValues(t *testing.T) {
	v := NewValidator().
		Field("employeeId", "123456789", Required,
			Check(func(any) bool { return false }, "failed checksum")).
		Field("taxYear", 1999, IntBetween(2010, 2027)).
		Field("grossIncome", -1.0, NonNegativeAmount).
		Field("taxDeducted", math.Inf(1), NonNegativeAmount)

	require.True(t, v.HasErrors())
	assert.Equal(t, []string{"employeeId", "taxYear", "grossIncome", "taxDeducted"}, v.Fields())

	err := v.Error()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotContains(t, err.Error(), "123456789")
	assert.Contains(t, err.Error(), "between 2010 and 2027")
}

func TestValidator_NoErrors(t *testing.T) {
	v := NewValidator().
		Field("name", "x", Required).
		Field("year", 2024, IntBetween(2010, 2027)).
		Field("amount", 0.0, NonNegativeAmount)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
}

func TestIntBetween_WrongType(t *testing.T) {
	err := IntBetween(1, 2)("f", "nope")
	require.NotNil(t, err)
	assert.Equal(t, "must be an integer", err.Message)
}
