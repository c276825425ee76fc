// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Command fabric-reconciler plans HPC management-network topologies and keeps the running
// configuration of the fabric switches converged with their desired state.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("main")

// Exit codes
const (
	CLIExitSuccess  = 0 // every targeted switch converged or confirmed
	CLIExitFindings = 1 // drift, validation failures or unsuccessful rollouts
	CLIExitError    = 2 // the command could not run
)

// exitError ends a command with a specific exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func findings(format string, args ...interface{}) error {
	return &exitError{code: CLIExitFindings, msg: fmt.Sprintf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		if e, ok := err.(*exitError); ok {
			return e.code
		}
		return CLIExitError
	}
	return CLIExitSuccess
}
