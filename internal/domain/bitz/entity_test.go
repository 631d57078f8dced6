package bitz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"musicvault/internal/domain/bitz"
)

func TestNormalizeBountyIDs(t *testing.T) {
	got := bitz.NormalizeBountyIDs([]string{" b2", "b1", "", "b2 ", "b3"})
	require.Equal(t, []string{"b2", "b1", "b3"}, got)
}
