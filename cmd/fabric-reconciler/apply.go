// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/onosproject/fabric-reconciler/pkg/synchronizer"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/spf13/cobra"
)

type applyOptions struct {
	dryRun       bool
	force        bool
	backupFolder string
	yes          bool
	verbose      bool
}

func newApplyCommand(opts *globalOptions) *cobra.Command {
	ao := &applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Correct drifted domains with the safe rollout protocol",
		Long: `apply audits every switch and rolls out a corrective candidate for each drifted
domain. Every rollout is staged, armed with a revert timer and confirmed from a new
session; a switch that cannot be reached again reverts on its own and is reported.
Changes are only made once --backup-folder holds a verified backup of every switch.
With --dry-run candidates are validated by the switches and nothing is applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.load(true)
			if err != nil {
				return err
			}
			defer f.Close()

			if !ao.dryRun {
				if ao.backupFolder == "" {
					return errors.NewInvalid("a backup folder is required before applying changes; run backup first")
				}
				if err := synchronizer.VerifyBackup(ao.backupFolder, f.inv); err != nil {
					return err
				}
			}
			if !ao.dryRun && !ao.yes {
				ok, err := confirmApply(cmd.InOrStdin(), cmd.OutOrStdout(), len(f.inv.Switches), ao.force)
				if err != nil {
					return err
				}
				if !ok {
					return errors.NewCanceled("apply aborted")
				}
			}

			s := f.synchronizer(
				synchronizer.WithDryRun(ao.dryRun),
				synchronizer.WithForce(ao.force),
				synchronizer.WithBackupFolder(ao.backupFolder),
			)
			report, err := s.Synchronize(cmd.Context(), f.inv, f.vars)
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), report, ao.verbose)
			if !report.Success() {
				return findings("%d switches did not converge: %s", len(report.Failed()), strings.Join(report.Failed(), ", "))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&ao.dryRun, "dry-run", false, "validate candidates on the switches without applying them")
	flags.BoolVar(&ao.force, "force", false, "apply to the running configuration of switches that allow it")
	flags.StringVarP(&ao.backupFolder, "backup-folder", "b", "", "folder holding a verified backup of the targeted switches")
	flags.BoolVarP(&ao.yes, "yes", "y", false, "do not ask for confirmation")
	flags.BoolVarP(&ao.verbose, "verbose", "v", false, "list every differing record")
	return cmd
}

func confirmApply(in io.Reader, out io.Writer, switches int, force bool) (bool, error) {
	target := "staged in the startup configuration"
	if force {
		target = "written to the running configuration where allowed"
	}
	fmt.Fprintf(out, "Corrections for up to %d switches will be %s. Continue? [y/N] ", switches, target)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
