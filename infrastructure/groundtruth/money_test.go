package groundtruth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{in: "380000", want: 380000, wantOK: true},
		{in: "$380,000", want: 380000, wantOK: true},
		{in: "$ 22,629.34", want: 22629.34, wantOK: true},
		{in: "$1.2 million", want: 1_200_000, wantOK: true},
		{in: "1.2M", want: 1_200_000, wantOK: true},
		{in: "2.5bn", want: 2_500_000_000, wantOK: true},
		{in: "USD 5k", want: 5000, wantOK: true},
		{in: "approximately $3 billion in total", want: 3_000_000_000, wantOK: true},
		{in: "5 members", want: 5, wantOK: true},
		{in: "0", want: 0, wantOK: true},
		{in: "unknown", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestFirstDollarAmount(t *testing.T) {
	v, ok := firstDollarAmount(" of $1,000 and $2,000", 10)
	assert.True(t, ok)
	assert.Equal(t, 1000.0, v)

	_, ok = firstDollarAmount(" of about one thousand dollars", 200)
	assert.False(t, ok, "amounts must carry a dollar sign")
}
