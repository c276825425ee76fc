// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// DefaultPrompt matches "switch# ", "switch(config)# " and "switch> ".
var DefaultPrompt = regexp.MustCompile(`^[\w.\-]+(\([\w.\-]+\))?[#>]\s*$`)

// shell drives an interactive CLI: it writes a command, then reads until the prompt returns.
// One goroutine owns the output stream for the life of the shell. After a command goes
// unanswered the shell refuses further commands.
type shell struct {
	in     io.Writer
	prompt *regexp.Regexp

	chunks  chan []byte
	readErr error
	done    chan struct{}
	once    sync.Once

	buf    bytes.Buffer
	broken error
}

func newShell(in io.Writer, out io.Reader, prompt *regexp.Regexp) *shell {
	if prompt == nil {
		prompt = DefaultPrompt
	}
	s := &shell{in: in, prompt: prompt, chunks: make(chan []byte, 16), done: make(chan struct{})}
	go s.read(out)
	return s
}

func (s *shell) read(out io.Reader) {
	defer close(s.chunks)
	for {
		chunk := make([]byte, 4096)
		n, err := out.Read(chunk)
		if n > 0 {
			select {
			case s.chunks <- chunk[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// close stops the reader; the caller closes the underlying stream
func (s *shell) close() {
	s.once.Do(func() { close(s.done) })
}

// start waits for the first prompt and runs the setup commands
func (s *shell) start(ctx context.Context, setup ...string) error {
	if _, err := s.readPrompt(ctx); err != nil {
		return err
	}
	_, err := s.runAll(ctx, setup)
	return err
}

func (s *shell) runAll(ctx context.Context, cmds []string) ([]string, error) {
	outputs := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		out, err := s.run(ctx, cmd)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (s *shell) run(ctx context.Context, cmd string) (string, error) {
	if s.broken != nil {
		return "", s.broken
	}
	if _, err := io.WriteString(s.in, cmd+"\n"); err != nil {
		s.broken = errors.NewUnavailable("writing %q: %v", cmd, err)
		return "", s.broken
	}
	out, err := s.readPrompt(ctx)
	if err != nil {
		return "", err
	}
	return trimEcho(out, cmd), nil
}

// readPrompt returns everything read before the prompt
func (s *shell) readPrompt(ctx context.Context) (string, error) {
	if s.broken != nil {
		return "", s.broken
	}
	for {
		data := strings.ReplaceAll(s.buf.String(), "\r", "")
		last := data[strings.LastIndex(data, "\n")+1:]
		if s.prompt.MatchString(last) {
			s.buf.Reset()
			return data[:len(data)-len(last)], nil
		}
		select {
		case <-ctx.Done():
			s.broken = errors.NewUnavailable("shell no longer in step with the switch after a timeout")
			return "", errors.NewTimeout("waiting for prompt: %v", ctx.Err())
		case chunk, ok := <-s.chunks:
			if !ok {
				s.broken = errors.NewUnavailable("reading shell output: %v", s.readErr)
				return "", s.broken
			}
			s.buf.Write(chunk)
		}
	}
}

// trimEcho removes the echoed command line and surrounding blank lines
func trimEcho(out string, cmd string) string {
	lines := strings.Split(out, "\n")
	if len(lines) > 0 && strings.HasSuffix(strings.TrimSpace(lines[0]), strings.TrimSpace(cmd)) {
		lines = lines[1:]
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
