package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "trunk prefix", raw: "0712345678", want: "254712345678"},
		{name: "plus country code", raw: "+254712345678", want: "254712345678"},
		{name: "bare country code", raw: "254712345678", want: "254712345678"},
		{name: "no prefix", raw: "712345678", want: "254712345678"},
		{name: "safaricom 1xx range", raw: "0110123456", want: "254110123456"},
		{name: "spaces and dashes", raw: "0712-345 678", want: "254712345678"},
		{name: "parentheses", raw: "(0712) 345678", want: "254712345678"},
		{name: "empty", raw: "", want: "254"},
		{name: "non digits only", raw: "abc", want: "254"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"0712345678",
		"+254712345678",
		"254712345678",
		"712345678",
		"00712345678",
		"1",
		"",
		"0",
		"254",
		"+1 650 555 0100",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("254712345678"))
	assert.True(t, Valid("254110123456"))
	assert.False(t, Valid("0712345678"))
	assert.False(t, Valid("25471234567"))   // too short
	assert.False(t, Valid("2547123456789")) // too long
	assert.False(t, Valid("+254712345678"))
	assert.False(t, Valid(""))
}
