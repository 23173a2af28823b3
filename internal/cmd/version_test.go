package cmd

import (
	"bytes"
	"testing"

	"github.com/dagu-org/testseries/internal/build"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := Version()
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	require.Equal(t, build.Version+"\n", buf.String())
}
