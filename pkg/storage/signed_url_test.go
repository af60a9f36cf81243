package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("ledger-2024-01", "ledger-2024-01.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	reportID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "ledger-2024-01", reportID)
	require.Equal(t, "ledger-2024-01.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("ledger-2024-01", "ledger-2024-01.csv")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("other-secret", time.Hour).Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("ledger-2024-01", "ledger-2024-01.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	reportID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "ledger-2024-01", reportID)
	require.Equal(t, "ledger-2024-01.pdf", path)
}
