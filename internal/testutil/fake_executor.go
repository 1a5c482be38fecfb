package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/agentrelay/code"
)

var (
	printSum  = regexp.MustCompile(`^print\(\s*(-?\d+)\s*\+\s*(-?\d+)\s*\)$`)
	printStr  = regexp.MustCompile(`^print\(\s*['"](.*)['"]\s*\)$`)
	writeFile = regexp.MustCompile(`^open\(\s*['"]([^'"]+)['"]\s*,\s*['"]w['"]\s*\)\.write\(\s*['"](.*)['"]\s*\)$`)
	assign    = regexp.MustCompile(`^([a-zA-Z_]\w*)\s*=\s*(-?\d+)$`)
	printVar  = regexp.MustCompile(`^print\(\s*([a-zA-Z_]\w*)\s*\)$`)
)

// FakeExecutor interprets a tiny python subset line by line so session and
// agent tests run without an interpreter:
//
//	print(2+2)                      -> "4"
//	print('text')                   -> "text"
//	x = 3 / print(x)                -> persistent variables
//	open('a.txt','w').write('data') -> writes a workspace file
//	raise ...                       -> reported as an execution error
type FakeExecutor struct {
	Dir string

	mu     sync.Mutex
	vars   map[string]string
	Calls  []string
	Closed bool
}

var _ code.Executor = (*FakeExecutor)(nil)

// NewFakeExecutorFactory returns a factory producing FakeExecutors. Every
// produced executor is also sent to the optional sink.
func NewFakeExecutorFactory(sink func(*FakeExecutor)) code.ExecutorFactory {
	return func(dir string) (code.Executor, error) {
		fe := &FakeExecutor{Dir: dir, vars: map[string]string{}}
		if sink != nil {
			sink(fe)
		}

		return fe, nil
	}
}

// Execute implements code.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, src string) (code.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return code.Result{}, err
	}

	if f.Closed {
		return code.Result{}, code.ErrExecutorClosed
	}

	f.Calls = append(f.Calls, src)

	var out strings.Builder

	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case strings.HasPrefix(line, "raise"):
			return code.Result{Stdout: out.String(), Error: "Traceback (most recent call last):\n" + strings.TrimPrefix(line, "raise ")}, nil
		case printSum.MatchString(line):
			m := printSum.FindStringSubmatch(line)
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			fmt.Fprintf(&out, "%d\n", a+b)
		case printStr.MatchString(line):
			fmt.Fprintf(&out, "%s\n", printStr.FindStringSubmatch(line)[1])
		case assign.MatchString(line):
			m := assign.FindStringSubmatch(line)
			f.vars[m[1]] = m[2]
		case printVar.MatchString(line):
			name := printVar.FindStringSubmatch(line)[1]

			v, ok := f.vars[name]
			if !ok {
				return code.Result{Stdout: out.String(), Error: fmt.Sprintf("NameError: name '%s' is not defined", name)}, nil
			}

			fmt.Fprintf(&out, "%s\n", v)
		case writeFile.MatchString(line):
			m := writeFile.FindStringSubmatch(line)
			if err := os.WriteFile(filepath.Join(f.Dir, m[1]), []byte(m[2]), 0o644); err != nil {
				return code.Result{}, err
			}
		default:
			return code.Result{Stdout: out.String(), Error: fmt.Sprintf("SyntaxError: unsupported statement %q", line)}, nil
		}
	}

	return code.Result{Stdout: out.String()}, nil
}

// Close implements code.Executor.
func (f *FakeExecutor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Closed = true

	return nil
}
