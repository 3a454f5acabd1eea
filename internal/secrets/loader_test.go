package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0o600))
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))

	got, err := Load(Source{Name: "password", File: file, Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file wins over value")

	got, err = Load(Source{Value: "  inline  "})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	_, err = Load(Source{Name: "password", File: empty})
	assert.EqualError(t, err, `password file "`+empty+`" is empty`)

	_, err = Load(Source{Name: "password", File: filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(Source{Name: "api key"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.EqualError(t, err, "api key is not configured")
}

func pipeWith(t *testing.T, input string) *os.File {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return r
}

func TestResolvePromptsWhenMissing(t *testing.T) {
	var out bytes.Buffer

	got, err := Resolve(Source{Name: "password"}, pipeWith(t, "piped-secret\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "piped-secret", got)
	assert.Empty(t, out.String(), "no prompt for piped input")

	got, err = Resolve(Source{Name: "password", Value: "set"}, pipeWith(t, "ignored\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "set", got)
}

func TestPromptTerminal(t *testing.T) {
	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte(" typed "), nil }
	t.Cleanup(func() {
		isTerminal = defaultIsTerminal
		readPassword = defaultReadPassword
	})

	var out bytes.Buffer
	got, err := Prompt(pipeWith(t, ""), &out, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "typed", got)
	assert.Equal(t, "Password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("interrupted") }
	_, err = Prompt(pipeWith(t, ""), &out, "Password: ")
	assert.EqualError(t, err, "reading Password: interrupted")
}

func TestPromptEmptyInput(t *testing.T) {
	_, err := Prompt(pipeWith(t, ""), &bytes.Buffer{}, "Password: ")
	assert.Error(t, err)

	got, err := Prompt(pipeWith(t, "no-newline"), &bytes.Buffer{}, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestPromptTwiceOnOnePipe(t *testing.T) {
	in := pipeWith(t, "s3cret\nconfirmed\n")

	first, err := Prompt(in, &bytes.Buffer{}, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", first)

	second, err := Prompt(in, &bytes.Buffer{}, "Confirm password: ")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", second)

	_, err = Prompt(in, &bytes.Buffer{}, "Extra: ")
	assert.EqualError(t, err, "reading Extra: EOF")
}

var (
	defaultIsTerminal   = isTerminal
	defaultReadPassword = readPassword
)
