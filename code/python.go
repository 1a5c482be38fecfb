package code

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// driver is the interpreter side of the line protocol: one JSON request per
// line on stdin, one JSON response per line on stdout. User output is
// captured and user code reads from an empty stdin, so neither can touch the
// protocol stream.
const driver = `
import contextlib, io, json, sys, traceback
_ns = {"__name__": "__main__"}
_in, _out = sys.stdin, sys.stdout
while True:
    _line = _in.readline()
    if not _line:
        break
    _req = json.loads(_line)
    _so, _se, _err = io.StringIO(), io.StringIO(), ""
    sys.stdin = io.StringIO()
    with contextlib.redirect_stdout(_so), contextlib.redirect_stderr(_se):
        try:
            exec(compile(_req["code"], "<cell>", "exec"), _ns)
        except BaseException:
            _err = traceback.format_exc()
    sys.stdin = _in
    _out.write(json.dumps({"stdout": _so.getvalue(), "stderr": _se.getvalue(), "error": _err}) + "\n")
    _out.flush()
`

// ErrExecutorClosed is returned by Execute after Close.
var ErrExecutorClosed = errors.New("executor is closed")

type pyRequest struct {
	Code string `json:"code"`
}

type pyResponse struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Error  string `json:"error"`
}

// PythonExecutor drives a persistent python interpreter process. The process
// is started lazily and restarted after a cancelled execution, which loses
// the interpreter state.
type PythonExecutor struct {
	python string
	dir    string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	closed bool
}

var _ Executor = (*PythonExecutor)(nil)

// NewPythonExecutor creates an executor running python inside dir.
func NewPythonExecutor(python, dir string) *PythonExecutor {
	if python == "" {
		python = "python3"
	}

	return &PythonExecutor{python: python, dir: dir}
}

// PythonFactory returns an ExecutorFactory for the given interpreter binary.
func PythonFactory(python string) ExecutorFactory {
	return func(dir string) (Executor, error) {
		if _, err := exec.LookPath(orDefault(python, "python3")); err != nil {
			return nil, fmt.Errorf("python interpreter unavailable: %w", err)
		}

		return NewPythonExecutor(python, dir), nil
	}
}

func (p *PythonExecutor) start() error {
	cmd := exec.Command(p.python, "-u", "-c", driver)
	cmd.Dir = p.dir
	cmd.Env = append(os.Environ(), "MPLBACKEND=Agg", "PYTHONIOENCODING=utf-8")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.python, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = bufio.NewReaderSize(stdout, 64*1024)

	return nil
}

// Execute sends code to the interpreter and waits for its response or for
// ctx to be done.
func (p *PythonExecutor) Execute(ctx context.Context, code string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Result{}, ErrExecutorClosed
	}

	if p.cmd == nil {
		if err := p.start(); err != nil {
			return Result{}, err
		}
	}

	line, err := json.Marshal(pyRequest{Code: code})
	if err != nil {
		return Result{}, err
	}

	start := time.Now()

	if _, err := p.stdin.Write(append(line, '\n')); err != nil {
		p.kill()
		return Result{}, fmt.Errorf("write to interpreter: %w", err)
	}

	type reply struct {
		resp pyResponse
		err  error
	}

	done := make(chan reply, 1)

	go func() {
		raw, err := p.stdout.ReadBytes('\n')
		if err != nil {
			done <- reply{err: fmt.Errorf("read from interpreter: %w", err)}
			return
		}

		var resp pyResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			done <- reply{err: fmt.Errorf("decode interpreter response: %w", err)}
			return
		}

		done <- reply{resp: resp}
	}()

	select {
	case <-ctx.Done():
		p.kill()
		<-done

		return Result{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			p.kill()
			return Result{}, r.err
		}

		return Result{
			Stdout:   r.resp.Stdout,
			Stderr:   r.resp.Stderr,
			Error:    r.resp.Error,
			Duration: time.Since(start),
		}, nil
	}
}

// kill terminates the interpreter; the next Execute starts a fresh one.
func (p *PythonExecutor) kill() {
	if p.cmd == nil {
		return
	}

	_ = p.stdin.Close()

	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}

	_ = p.cmd.Wait()
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil
}

// Close stops the interpreter. It is safe to call more than once.
func (p *PythonExecutor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.kill()
	p.closed = true

	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
