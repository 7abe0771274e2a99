package chain

import (
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    ConfirmationLevel
		wantErr bool
	}{
		{"processed", LevelProcessed, false},
		{"confirmed", LevelConfirmed, false},
		{"finalized", LevelFinalized, false},
		{"instant", LevelUnknown, true},
		{"", LevelUnknown, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseLevel(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseLevel(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, LevelProcessed < LevelConfirmed)
	assert.True(t, LevelConfirmed < LevelFinalized)
	assert.True(t, LevelUnknown < LevelProcessed)
}

func TestLevelCommitment(t *testing.T) {
	assert.Equal(t, rpc.CommitmentProcessed, LevelProcessed.Commitment())
	assert.Equal(t, rpc.CommitmentConfirmed, LevelConfirmed.Commitment())
	assert.Equal(t, rpc.CommitmentFinalized, LevelFinalized.Commitment())
	// Unknown falls back to confirmed, the safe middle ground.
	assert.Equal(t, rpc.CommitmentConfirmed, LevelUnknown.Commitment())
}

func TestLevelFromStatus(t *testing.T) {
	confirmations := func(n uint64) *uint64 { return &n }

	tests := []struct {
		name   string
		status *rpc.SignatureStatusesResult
		want   ConfirmationLevel
	}{
		{
			name:   "nil status",
			status: nil,
			want:   LevelUnknown,
		},
		{
			name:   "explicit processed",
			status: &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
			want:   LevelProcessed,
		},
		{
			name:   "explicit confirmed",
			status: &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
			want:   LevelConfirmed,
		},
		{
			name:   "explicit finalized",
			status: &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
			want:   LevelFinalized,
		},
		{
			name:   "rooted without status field",
			status: &rpc.SignatureStatusesResult{Confirmations: nil},
			want:   LevelFinalized,
		},
		{
			name:   "counted confirmations without status field",
			status: &rpc.SignatureStatusesResult{Confirmations: confirmations(5)},
			want:   LevelConfirmed,
		},
		{
			name:   "zero confirmations without status field",
			status: &rpc.SignatureStatusesResult{Confirmations: confirmations(0)},
			want:   LevelProcessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromStatus(tt.status))
		})
	}
}
