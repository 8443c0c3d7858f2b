package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salespulse/internal/errors"
)

type window struct {
	Label string `json:"label" validate:"required"`
	Start string `json:"start" validate:"isodate"`
}

type report struct {
	Colour  string   `json:"colour" validate:"required,colour"`
	Bands   int      `json:"bands" validate:"min=2,max=10"`
	Rate    float64  `json:"rate" validate:"gt=0"`
	Edges   []int    `json:"edges" validate:"min=2"`
	Windows []window `json:"windows" validate:"dive"`
	Ignored string   `json:"-" validate:"required"`
}

func newTestValidator(t *testing.T) *StructValidator {
	t.Helper()
	v := NewStructValidator("json")
	require.NoError(t, v.RegisterRule("colour", func(value string) bool {
		return value == "red" || value == "blue"
	}))
	return v
}

func TestStructValidator_Valid(t *testing.T) {
	err := newTestValidator(t).Validate(report{
		Colour:  "red",
		Bands:   4,
		Rate:    0.5,
		Edges:   []int{0, 1},
		Windows: []window{{Label: "q1", Start: "2024-01-01"}, {Label: "open"}},
		Ignored: "x",
	})
	assert.NoError(t, err)
}

func TestStructValidator_CollectsEveryProblem(t *testing.T) {
	err := newTestValidator(t).Validate(report{
		Colour:  "green",
		Bands:   1,
		Edges:   []int{0},
		Windows: []window{{Label: "q1", Start: "01/01/2024"}, {}},
		Ignored: "x",
	})

	var cfgErr *apperrors.ConfigurationError
	require.True(t, apperrors.As(err, &cfgErr), "got %v", err)

	got := make(map[string]string)
	for _, p := range cfgErr.Problems {
		got[p.Field] = p.Message
	}
	assert.Equal(t, map[string]string{
		"colour":           "colour failed colour validation (value green)",
		"bands":            "bands must be at least 2",
		"rate":             "rate must be greater than 0",
		"edges":            "edges must have at least 2 entries",
		"windows[0].start": "start must be a YYYY-MM-DD date",
		"windows[1].label": "label is required",
	}, got)
}

func TestStructValidator_NonStruct(t *testing.T) {
	err := NewStructValidator("json").Validate(42)
	require.Error(t, err)

	var cfgErr *apperrors.ConfigurationError
	assert.False(t, apperrors.As(err, &cfgErr))
}
