package shared

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCGPA(t *testing.T) {
	tests := []struct {
		in      float64
		want    CGPA
		wantErr error
	}{
		{in: 7.5, want: 750},
		{in: 7.349, want: 735},
		{in: 0, want: 0},
		{in: 10, want: 1000},
		{in: 10.01, wantErr: ErrValueOutOfRange},
		{in: -0.5, wantErr: ErrValueOutOfRange},
		{in: math.NaN(), wantErr: ErrInvalidFormat},
	}

	for _, tt := range tests {
		got, err := NewCGPA(tt.in)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "input %v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCGPA_ThresholdIsExact(t *testing.T) {
	// 0.1 + 0.2 style float drift must not flip an equal comparison.
	student, err := ParseCGPA("7.3")
	require.NoError(t, err)
	assert.True(t, student.AtLeast(MustCGPA(7.1+0.2)))
	assert.False(t, MustCGPA(7.29).AtLeast(student))
}

func TestCGPA_JSON(t *testing.T) {
	var v struct {
		CGPA CGPA `json:"cgpa"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"cgpa": 8.05}`), &v))
	assert.Equal(t, CGPA(805), v.CGPA)
	assert.Equal(t, "8.05", v.CGPA.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cgpa": 8.05}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"cgpa": "9"}`), &v))
	assert.Equal(t, CGPA(900), v.CGPA)

	assert.Error(t, json.Unmarshal([]byte(`{"cgpa": "high"}`), &v))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("student_id", 1))
	assert.ErrorIs(t, ValidateID("student_id", 0), ErrInvalidID)
	assert.True(t, IsValidation(ValidateID("student_id", -3)))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsNotFound(ErrStudentNotFound))
	assert.True(t, IsAlreadyExists(ErrDuplicateApplication))
	assert.True(t, IsRejection(ErrBelowEligibilityThreshold))
	assert.True(t, IsRejection(ErrDeadlinePassed))
	assert.False(t, IsRejection(ErrDuplicateApplication))
	assert.ErrorIs(t, ErrInvalidStatusTransition, ErrStateTransition)
}
