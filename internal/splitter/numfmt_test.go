package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBuiltinDateFormat(t *testing.T) {
	dates := []int{14, 15, 17, 20, 22, 27, 36, 45, 46, 47, 50, 58}
	for _, id := range dates {
		assert.True(t, isBuiltinDateFormat(id), "id %d", id)
	}

	others := []int{0, 1, 2, 9, 10, 13, 23, 37, 44, 48, 49, 59, 164}
	for _, id := range others {
		assert.False(t, isBuiltinDateFormat(id), "id %d", id)
	}
}

func TestIsDateFormatCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"dd/mm/yyyy", true},
		{"mmm yy", true},
		{"h:mm AM/PM", true},
		{"[h]:mm:ss", true},
		{"[$-409]d-mmm-yy;@", true},
		{"[Red]yyyy/mm/dd", true},
		{"General", false},
		{"0.00", false},
		{"#,##0", false},
		{"0.00E+00", false},
		{`0.0" days"`, false},
		{`#,##0\h`, false},
		{"[Red]0.00", false},
		{"[$USD]#,##0.00", false},
		{"_(* #,##0_)", false},
		{"0;[Red]yyyy", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormatCode(tt.code))
		})
	}
}
