// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// CommandSession sends CLI commands to a switch and returns their raw output.
type CommandSession interface {
	// Send runs one command on its own channel
	Send(ctx context.Context, cmd string) (string, error)
	// SendAll runs commands in order on one interactive shell, so mode changes carry over
	SendAll(ctx context.Context, cmds []string) ([]string, error)
	Close() error
}

// SSHSession implements CommandSession over x/crypto/ssh.
type SSHSession struct {
	address string
	config  *ssh.ClientConfig
	prompt  *regexp.Regexp
	setup   []string

	client *ssh.Client
	shell  *shell
	sess   *ssh.Session
}

// DialSSH connects to address (host:port). prompt matches the last line the switch prints
// when it is ready for input; setup commands, such as disabling paging, run once when the
// shell is opened.
func DialSSH(ctx context.Context, address string, config *ssh.ClientConfig, prompt *regexp.Regexp, setup ...string) (*SSHSession, error) {
	s := &SSHSession{address: address, config: config, prompt: prompt, setup: setup}
	if err := s.dial(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SSHSession) dial(ctx context.Context) error {
	d := net.Dialer{Timeout: s.config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return errors.NewUnavailable("failed to connect to %s: %v", s.address, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, s.address, s.config)
	if err != nil {
		_ = conn.Close()
		return errors.NewUnavailable("ssh handshake with %s: %v", s.address, err)
	}
	s.client = ssh.NewClient(c, chans, reqs)
	return nil
}

// redial re-establishes the connection; switches may accept few concurrent channels
func (s *SSHSession) redial(ctx context.Context) error {
	if s.client != nil {
		_ = s.client.Close()
	}
	return s.dial(ctx)
}

// isTransientSSH reports errors after which a fresh connection may succeed
func isTransientSSH(err error) bool {
	if err == io.EOF {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected packet in response to channel open") ||
		strings.Contains(msg, "channel open") ||
		strings.Contains(msg, "connection reset by peer")
}

func (s *SSHSession) newSession(ctx context.Context) (*ssh.Session, error) {
	sess, err := s.client.NewSession()
	if err != nil && isTransientSSH(err) {
		if rerr := s.redial(ctx); rerr == nil {
			sess, err = s.client.NewSession()
		}
	}
	if err != nil {
		return nil, errors.NewUnavailable("failed to create SSH session to %s: %v", s.address, err)
	}
	return sess, nil
}

// Send runs cmd on an exec channel.
func (s *SSHSession) Send(ctx context.Context, cmd string) (string, error) {
	sess, err := s.newSession(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return "", errors.NewTimeout("%s on %s: %v", cmd, s.address, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return string(r.out), fmt.Errorf("command %s failed: %w", cmd, r.err)
		}
		return string(r.out), nil
	}
}

func (s *SSHSession) openShell(ctx context.Context) error {
	sess, err := s.newSession(ctx)
	if err != nil {
		return err
	}
	modes := ssh.TerminalModes{ssh.ECHO: 0, ssh.TTY_OP_ISPEED: 115200, ssh.TTY_OP_OSPEED: 115200}
	if err := sess.RequestPty("vt100", 0, 512, modes); err != nil {
		_ = sess.Close()
		return errors.NewUnavailable("requesting pty on %s: %v", s.address, err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return err
	}
	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return errors.NewUnavailable("starting shell on %s: %v", s.address, err)
	}

	sh := newShell(stdin, stdout, s.prompt)
	if err := sh.start(ctx, s.setup...); err != nil {
		sh.close()
		_ = sess.Close()
		return err
	}
	s.sess, s.shell = sess, sh
	return nil
}

// SendAll runs cmds on the interactive shell, opening it on first use. A shell left out of
// step by a timeout is closed and the next call opens a new one.
func (s *SSHSession) SendAll(ctx context.Context, cmds []string) ([]string, error) {
	if s.shell == nil {
		if err := s.openShell(ctx); err != nil {
			return nil, err
		}
	}
	outputs, err := s.shell.runAll(ctx, cmds)
	if s.shell.broken != nil {
		s.closeShell()
	}
	return outputs, err
}

func (s *SSHSession) closeShell() {
	if s.sess != nil {
		s.shell.close()
		_ = s.sess.Close()
		s.sess, s.shell = nil, nil
	}
}

// Close closes the shell and the connection.
func (s *SSHSession) Close() error {
	s.closeShell()
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}
