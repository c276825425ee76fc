// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

func newAuditCommand(opts *globalOptions) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the running configuration of switches with their desired configuration",
		Long: `audit reads the running configuration of every switch once, renders the desired
ACL, VLAN and BGP configuration and reports each domain as converged, drifted or
indeterminate. Nothing is changed on the switches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.load(true)
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := f.synchronizer().Audit(cmd.Context(), f.inv, f.vars)
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), report, verbose)
			if !report.Success() {
				return findings("%d switches are not converged", len(report.Failed()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every differing record")
	return cmd
}
