package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "remitpool/pkg/domain-errors"
)

// TestParseAccountID_Invariants validates the parsing invariant:
// account IDs are opaque but must be non-empty.
func TestParseAccountID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts opaque addresses", func(t *testing.T) {
		account, err := ParseAccountID("alice")
		require.NoError(t, err)
		assert.Equal(t, AccountID("alice"), account)
		assert.False(t, account.IsNil())
	})

	t.Run("zero value is nil", func(t *testing.T) {
		var account AccountID
		assert.True(t, account.IsNil())
	})
}

// TestParseRemittanceID_Invariants validates that remittance IDs are positive
// integers; zero is reserved as the never-assigned value.
func TestParseRemittanceID_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RemittanceID
		wantErr bool
	}{
		{"rejects empty string", "", 0, true},
		{"rejects zero", "0", 0, true},
		{"rejects negative", "-5", 0, true},
		{"rejects non-numeric", "abc", 0, true},
		{"rejects fractional", "1.5", 0, true},
		{"rejects overflow", "18446744073709551616", 0, true},
		{"accepts one", "1", 1, false},
		{"accepts large", "18446744073709551615", 18446744073709551615, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rid, err := ParseRemittanceID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rid)
		})
	}
}

// TestRemittanceID_RoundTrip verifies String and ParseRemittanceID agree.
func TestRemittanceID_RoundTrip(t *testing.T) {
	rid := RemittanceID(42)
	parsed, err := ParseRemittanceID(rid.String())
	require.NoError(t, err)
	assert.Equal(t, rid, parsed)
}

func TestIdentifierHash_IsNil(t *testing.T) {
	var hash IdentifierHash
	assert.True(t, hash.IsNil())
	assert.False(t, IdentifierHash("ab").IsNil())
}
