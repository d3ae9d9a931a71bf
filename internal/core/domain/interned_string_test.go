package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/core/domain"
)

func TestInternedString_SharesHandle(t *testing.T) {
	a := domain.NewInternedString("build/libmath.so")
	b := domain.NewInternedString("build/libmath.so")

	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, "build/libmath.so", a.String())
	assert.False(t, a.IsZero())
}

func TestInternedString_Zero(t *testing.T) {
	var zero domain.InternedString

	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.String())

	data, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.JSONEq(t, `""`, string(data))
}

func TestInternedString_JSONRoundTripInStruct(t *testing.T) {
	type record struct {
		Name domain.InternedString `json:"name"`
	}

	data, err := json.Marshal(record{Name: domain.NewInternedString("calc#test")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"calc#test"}`, string(data))

	var got record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "calc#test", got.Name.String())
}

func TestNewInternedStrings(t *testing.T) {
	tests := []struct {
		name string
		in   []string
	}{
		{name: "empty", in: []string{}},
		{name: "values", in: []string{"libmath", "calc", "stage"}},
		{name: "duplicates", in: []string{"calc", "calc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.NewInternedStrings(tt.in)
			require.Len(t, got, len(tt.in))
			for i, want := range tt.in {
				assert.Equal(t, want, got[i].String())
			}
		})
	}
}
