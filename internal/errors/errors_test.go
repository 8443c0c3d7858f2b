package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/pkg/contracts/domain"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		wantMsg string
		errType ErrorType
	}{
		{
			name:    "parsing with cause",
			err:     NewParsingError("failed to read csv rows", io.ErrUnexpectedEOF),
			wantMsg: "[PARSING] failed to read csv rows: unexpected EOF",
			errType: ErrTypeParsing,
		},
		{
			name:    "storage",
			err:     NewStorageError("failed to save workbook", nil),
			wantMsg: "[STORAGE] failed to save workbook",
			errType: ErrTypeStorage,
		},
		{
			name:    "not found",
			err:     NewNotFoundError(`sheet "Orders"`),
			wantMsg: `[NOT_FOUND] sheet "Orders" not found`,
			errType: ErrTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())

			wrapped := fmt.Errorf("load orders.xlsx: %w", tt.err)
			assert.True(t, IsType(wrapped, tt.errType))
			assert.False(t, IsType(wrapped, ErrTypeConfig))
		})
	}
}

func TestAppError_UnwrapAndContext(t *testing.T) {
	err := NewParsingError("failed to read csv header", io.ErrUnexpectedEOF).WithContext("file", "orders.csv")

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "orders.csv", err.Context["file"])
	assert.False(t, IsType(io.EOF, ErrTypeParsing))
}

func TestSchemaError(t *testing.T) {
	err := NewSchemaError(7, domain.FieldDiscount, domain.ReasonRangeViolation, "discount %v outside [0,1]", 1.5)

	assert.Equal(t, "row 7: RANGE_VIOLATION on discount: discount 1.5 outside [0,1]", err.Error())
	assert.Equal(t, domain.QuarantinedRow{
		RowIndex: 7,
		Reason:   domain.ReasonRangeViolation,
		Field:    domain.FieldDiscount,
		Detail:   "discount 1.5 outside [0,1]",
	}, err.Quarantine())
}

func TestEmptySnapshotError(t *testing.T) {
	err := &EmptySnapshotError{
		InputRows:  2,
		Quarantine: []domain.QuarantinedRow{{RowIndex: 0}, {RowIndex: 1}},
	}
	assert.Equal(t, "[EMPTY_SNAPSHOT] no valid records after normalization (2 input rows, 2 quarantined)", err.Error())

	var target *EmptySnapshotError
	require.True(t, As(fmt.Errorf("pipeline run: %w", err), &target))
	assert.Len(t, target.Quarantine, 2)
}

func TestConfigurationError(t *testing.T) {
	cfgErr := &ConfigurationError{}
	assert.NoError(t, cfgErr.ErrOrNil())

	var nilErr *ConfigurationError
	assert.NoError(t, nilErr.ErrOrNil())

	cfgErr.Add("quantileBandCount", "must be at least %d", 2)
	cfgErr.Add("discountBinEdges", "must start at 0")
	require.Error(t, cfgErr.ErrOrNil())
	assert.Equal(t,
		"[CONFIG] invalid configuration: quantileBandCount: must be at least 2; discountBinEdges: must start at 0",
		cfgErr.Error())

	single := NewConfigError("periodGranularity", "unknown granularity %q", "fortnight")
	assert.Equal(t, []ConfigProblem{{Field: "periodGranularity", Message: `unknown granularity "fortnight"`}}, single.Problems)
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"app error", NewStorageError("write", io.ErrShortWrite), ErrTypeStorage},
		{"wrapped schema error", fmt.Errorf("row: %w", NewSchemaError(1, domain.FieldSale, domain.ReasonRangeViolation, "negative")), ErrTypeSchema},
		{"empty snapshot", &EmptySnapshotError{InputRows: 2}, ErrTypeEmptySnapshot},
		{"configuration", NewConfigError("granularity", "unknown"), ErrTypeConfig},
		{"plain error", io.EOF, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}
