package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molecule/internal/evaluator"
)

const (
	listed   = "0x1111111111111111111111111111111111111111"
	unlisted = "0x2222222222222222222222222222222222222222"
)

const seed = `
lists:
  - ref: "0x00000000000000000000000000000000000000aa"
    name: sanctioned
    members: ["` + listed + `"]
expressions:
  - ref: "0x00000000000000000000000000000000000000ee"
    expr: 'address.endsWith("2222")'
policies:
  - {id: 1, module: "0x00000000000000000000000000000000000000aa", allow_list: false, name: sanctions}
  - {id: 2, module: "0x00000000000000000000000000000000000000ee", allow_list: true, name: suffix}
selection: [1]
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writeSeed(t, seed))
	require.NoError(t, err)
	assert.Contains(t, out, "ok ")

	broken := writeSeed(t, "policies:\n  - {id: 1, module: \"0x00000000000000000000000000000000000000cc\", allow_list: true}\n")
	out, err = run(t, "validate", broken)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
}

func TestCheck(t *testing.T) {
	path := writeSeed(t, seed)

	t.Run("seed selection", func(t *testing.T) {
		out, err := run(t, "check", "--seed", path, unlisted)
		require.NoError(t, err)
		assert.Contains(t, out, "PASS")
		assert.Contains(t, out, "sanctions")
	})

	t.Run("rejected address fails the command", func(t *testing.T) {
		out, err := run(t, "check", "--seed", path, listed)
		require.Error(t, err)
		assert.Contains(t, out, "FAIL")
	})

	t.Run("explicit selection and mode", func(t *testing.T) {
		// listed fails policy 1 and policy 2; unlisted passes both.
		_, err := run(t, "check", "--seed", path, "--select", "1,2", "--mode", "any", listed)
		require.Error(t, err)

		out, err := run(t, "check", "--seed", path, "--select", "2,1", "--json", unlisted)
		require.NoError(t, err)
		var result evaluator.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.True(t, result.Passed)
		require.Len(t, result.Policies, 2)
		assert.Equal(t, evaluator.PolicyPassed, result.Policies[0].Status)
	})

	t.Run("unknown selected id", func(t *testing.T) {
		_, err := run(t, "check", "--seed", path, "--select", "9", unlisted)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logic id not found")
	})

	t.Run("seed flag is required", func(t *testing.T) {
		_, err := run(t, "check", unlisted)
		require.Error(t, err)
	})
}
