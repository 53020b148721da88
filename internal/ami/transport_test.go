package ami

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellTransport(t *testing.T) {
	var gotArgs []string
	tr := NewShellTransport("asterisk", 0)
	tr.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("546054 73.6.70.88 0 OUT 31:49:24 ESTABLISHED ~\n\nT546054\n\nRPT_TXKEYED=1\n"), nil
	}

	sess, err := tr.Acquire(context.Background(), Credentials{})
	require.NoError(t, err)
	defer tr.Release(sess)

	resp, err := sess.Action(context.Background(), "RptStatus", P("COMMAND", "XStat"), P("NODE", "546051"))
	require.NoError(t, err)
	assert.Equal(t, []string{"asterisk", "-rx", "rpt xnode 546051"}, gotArgs)
	assert.Equal(t, "546054 73.6.70.88 0 OUT 31:49:24 ESTABLISHED ~", resp.Output[0])
	assert.Contains(t, resp.Raw, "RPT_TXKEYED=1")
	assert.True(t, resp.OK())

	_, err = sess.Action(context.Background(), "RptStatus", P("COMMAND", "SawStat"), P("NODE", "546051"))
	assert.ErrorIs(t, err, ErrUnsupportedAction)

	_, err = sess.Action(context.Background(), "VoterStatus")
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestShellTransport_CommandFailure(t *testing.T) {
	tr := NewShellTransport("asterisk", 0)
	tr.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	sess, err := tr.Acquire(context.Background(), Credentials{})
	require.NoError(t, err)

	_, err = sess.Command(context.Background(), "rpt stats 546051")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, CommandIO, cmdErr.Kind)
	assert.False(t, cmdErr.Partial)
}
