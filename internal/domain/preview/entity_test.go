package preview_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"musicvault/internal/domain/preview"
)

func TestNewTrack(t *testing.T) {
	tr, err := preview.NewTrack(" ar1_a1 ", "t3")
	require.NoError(t, err)
	require.Equal(t, "previews/ar1_a1/t3.mp3", tr.ObjectKey())

	for _, bad := range [][2]string{{"", "t"}, {"a", ""}, {"a/b", "t"}, {"a", ".."}} {
		_, err := preview.NewTrack(bad[0], bad[1])
		require.ErrorIs(t, err, preview.ErrInvalidTrack)
	}
}
