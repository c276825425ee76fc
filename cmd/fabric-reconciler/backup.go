// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/synchronizer"
	"github.com/spf13/cobra"
)

func newBackupCommand(opts *globalOptions) *cobra.Command {
	var (
		folder string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Save the running configuration of switches before applying changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if folder == "" {
				folder = "backup-" + time.Now().UTC().Format("20060102-150405")
			}
			f, err := opts.load(false)
			if err != nil {
				return err
			}
			defer f.Close()

			if verify {
				if err := synchronizer.VerifyBackup(folder, f.inv); err != nil {
					return findings("backup %s: %v", folder, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s holds a verified backup of %d switches\n", folder, len(f.inv.Switches))
				return nil
			}

			m, err := f.synchronizer().Backup(cmd.Context(), f.inv, folder)
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Switch", "IP", "File", "Bytes", "SHA256")
			for _, e := range m.Entries {
				table.Append([]string{e.Hostname, e.IP, e.File, fmt.Sprint(e.Bytes), e.SHA256[:12]})
			}
			table.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "\nSaved to %s\n", folder)
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "destination folder (default backup-<timestamp>)")
	cmd.Flags().BoolVar(&verify, "verify", false, "only verify an existing backup folder")
	return cmd
}
