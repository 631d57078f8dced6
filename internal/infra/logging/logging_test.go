package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"musicvault/internal/infra/logging"
)

func TestMask(t *testing.T) {
	require.Equal(t, "", logging.Mask("  "))
	require.Equal(t, "short", logging.Mask("short"))
	require.Equal(t, "9xQe***VFin", logging.Mask("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"))
}

func TestNew(t *testing.T) {
	t.Setenv("K_SERVICE", "api")
	t.Setenv("GO_LOG", "info")

	var buf bytes.Buffer
	l := logging.New(&buf)
	l.Debug("[test] hidden")
	l.Info("[test] shown", "k", "v")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"severity":"INFO"`)
	require.Contains(t, out, `"message":"[test] shown"`)
}
