package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNotConfigured is returned when a source has neither a file nor a value.
var ErrNotConfigured = errors.New("not configured")

var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// Piped input is read through one buffered reader per file, so a second
// prompt sees the lines the first one buffered.
var (
	readersMu sync.Mutex
	readers   = make(map[*os.File]*bufio.Reader)
)

func lineReader(f *os.File) *bufio.Reader {
	readersMu.Lock()
	defer readersMu.Unlock()

	r, ok := readers[f]
	if !ok {
		r = bufio.NewReader(f)
		readers[f] = r
	}
	return r
}

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
}

// Load returns the secret from File or, when File is unset, from Value. The
// returned secret is trimmed.
func Load(src Source) (string, error) {
	name := src.name()

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is %w", name, ErrNotConfigured)
	}

	return secret, nil
}

// Resolve loads the secret and falls back to asking for it on in when the
// source is not configured.
func Resolve(src Source, in *os.File, out io.Writer) (string, error) {
	secret, err := Load(src)
	if err == nil || !errors.Is(err, ErrNotConfigured) {
		return secret, err
	}

	return Prompt(in, out, strings.ToUpper(src.name()[:1])+src.name()[1:]+": ")
}

// Prompt reads a secret without echo when in is a terminal, or a single line
// when it is piped.
func Prompt(in *os.File, out io.Writer, label string) (string, error) {
	fd := int(in.Fd())

	var (
		raw string
		err error
	)

	if isTerminal(fd) {
		fmt.Fprint(out, label)
		var data []byte
		data, err = readPassword(fd)
		fmt.Fprintln(out)
		raw = string(data)
	} else {
		raw, err = lineReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) && raw != "" {
			err = nil
		}
	}

	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}

	secret := strings.TrimSpace(raw)
	if secret == "" {
		return "", errors.New("empty input")
	}

	return secret, nil
}

func (s Source) name() string {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return "secret"
	}
	return name
}
