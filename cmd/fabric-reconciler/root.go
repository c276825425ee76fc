// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

// globalOptions are the flags shared by every fleet command.
type globalOptions struct {
	configPath    string
	inventoryPath string
	variablesPath string
	switches      []string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "fabric-reconciler",
		Short: "Plan and reconcile HPC management-network switches",
		Long: `fabric-reconciler builds management-network topologies from an architecture
definition and keeps the ACL, VLAN and BGP configuration of the fabric switches
converged with the configuration rendered from their variable tables. Changes are
applied through a checkpoint and revert-timer protocol so that a switch made
unreachable by a bad change reverts on its own.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "reconciler settings file (YAML)")
	flags.StringVarP(&opts.inventoryPath, "inventory", "i", "inventory.yaml", "switch inventory file (YAML)")
	flags.StringVar(&opts.variablesPath, "variables", "variables.yaml", "variable tables used to render desired configuration (YAML)")
	flags.StringSliceVarP(&opts.switches, "switch", "s", nil, "limit the run to these switches (repeatable)")

	rootCmd.AddCommand(
		newTopologyCommand(),
		newAuditCommand(opts),
		newApplyCommand(opts),
		newBackupCommand(opts),
	)
	return rootCmd
}
