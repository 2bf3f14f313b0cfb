package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote_Styles(t *testing.T) {
	tests := []struct {
		name     string
		style    QuoteStyle
		input    string
		expected string
	}{
		{name: "Backtick simple", style: Backtick, input: "users", expected: "`users`"},
		{name: "Backtick escape", style: Backtick, input: "my`table", expected: "`my``table`"},
		{name: "DoubleQuote simple", style: DoubleQuote, input: "order_items", expected: `"order_items"`},
		{name: "DoubleQuote escape", style: DoubleQuote, input: `a"b`, expected: `"a""b"`},
		{name: "Bracket simple", style: Bracket, input: "Customers", expected: "[Customers]"},
		{name: "Bracket escape", style: Bracket, input: "a]b", expected: "[a]]b]"},
		{name: "Empty string", style: Backtick, input: "", expected: "``"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.style.Quote(tt.input))
		})
	}
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, "[dbo].[Customers]", Bracket.QuoteQualified("dbo.Customers"))
	assert.Equal(t, `"public"."orders"`, DoubleQuote.QuoteQualified("public.orders"))
	assert.Equal(t, "`orders`", Backtick.QuoteQualified("orders"))
}

func TestQuoteIdentifier_MySQLDefault(t *testing.T) {
	assert.Equal(t, "`orders`", QuoteIdentifier("orders"))
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"users", "order_items", "Table1", "_hidden", "dbo.Customers"}
	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), name)
	}

	invalid := []string{"", "1table", "users; DROP TABLE x", "a.b.c", "name-with-dash", "a b"}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), name)
	}
}

func TestQuoteIdentifierSafe(t *testing.T) {
	quoted, err := QuoteIdentifierSafe(DoubleQuote, "customers")
	require.NoError(t, err)
	assert.Equal(t, `"customers"`, quoted)

	_, err = QuoteIdentifierSafe(Backtick, "bad;name")
	require.Error(t, err)

	var invalid *InvalidIdentifierError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "bad;name", invalid.Name)
	assert.Contains(t, err.Error(), "invalid identifier")
}
