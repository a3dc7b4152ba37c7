package refcode_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopline-labs/payment-reconciliation/internal/refcode"
)

func TestGenerator_Generate(t *testing.T) {
	g := refcode.NewGenerator()

	t.Run("generated codes are well formed", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := g.Generate()
			assert.NoError(t, err)
			assert.True(t, g.IsWellFormed(code), "generated code %q failed shape check", code)
		}
	})

	t.Run("generated codes avoid ambiguous glyphs", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := g.Generate()
			assert.NoError(t, err)
			body := strings.TrimPrefix(code, refcode.Prefix)
			assert.NotContains(t, body, "0")
			assert.NotContains(t, body, "O")
			assert.NotContains(t, body, "1")
			assert.NotContains(t, body, "I")
			assert.NotContains(t, body, "L")
		}
	})

	t.Run("consecutive codes differ", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			code, err := g.Generate()
			assert.NoError(t, err)
			assert.False(t, seen[code], "duplicate code %q", code)
			seen[code] = true
		}
	})
}

func TestGenerator_IsWellFormed(t *testing.T) {
	g := refcode.NewGenerator()

	tests := []struct {
		name string
		code string
		want bool
	}{
		{"generated shape", "PAY_7XK2M9QD", true},
		{"short body within window", "PAY_AB12CD", true},
		{"long body within window", "PAY_AB12CD34EF", true},
		{"missing prefix", "7XK2M9QD", false},
		{"wrong prefix", "PAID_7XK2M9QD", false},
		{"lowercase body", "PAY_ab12cd", false},
		{"body too short", "PAY_AB12C", false},
		{"body too long", "PAY_AB12CD34EF5", false},
		{"punctuation in body", "PAY_AB12-CD", false},
		{"empty string", "", false},
		{"prefix only", "PAY_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsWellFormed(tt.code))
		})
	}
}

func TestGenerator_Extract(t *testing.T) {
	g := refcode.NewGenerator()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain code in transfer memo",
			text: "Chuyen tien PAY_AB12CD tks",
			want: []string{"PAY_AB12CD"},
		},
		{
			name: "lowercase and no underscore",
			text: "pay ab12cd thanks",
			want: []string{"PAY_AB12CD"},
		},
		{
			name: "hyphen separator",
			text: "ref PAY-7XK2M9QD done",
			want: []string{"PAY_7XK2M9QD"},
		},
		{
			name: "multiple codes keep order",
			text: "PAY_AB12CD then PAY_EF34GH",
			want: []string{"PAY_AB12CD", "PAY_EF34GH"},
		},
		{
			name: "no false hit inside other words",
			text: "paid via ZALOPAY wallet",
			want: nil,
		},
		{
			name: "no code at all",
			text: "monthly rent for apartment 4B",
			want: nil,
		},
		{
			name: "code embedded in dense text",
			text: "ACB:123456 GD:PAY_7XK2M9QD SO DU:1.000.000",
			want: []string{"PAY_7XK2M9QD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Extract(tt.text))
		})
	}
}
