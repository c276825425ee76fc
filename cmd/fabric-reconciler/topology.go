// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/onosproject/fabric-reconciler/pkg/topology"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/spf13/cobra"
)

func newTopologyCommand() *cobra.Command {
	var (
		servers   int
		reserve   int
		maxLayers int
	)
	cmd := &cobra.Command{
		Use:   "topology ARCHITECTURE",
		Short: "Plan the switches and links needed to connect a number of servers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if servers < 1 {
				return errors.NewInvalid("--servers must be at least 1")
			}
			def, err := topology.LoadArchitecture(args[0])
			if err != nil {
				return err
			}
			factory := topology.NewModelFactory(def)
			southbound := make([]*topology.Node, 0, servers)
			for i := 0; i < servers; i++ {
				n, err := factory.NewNode(topology.ArchServer)
				if err != nil {
					return err
				}
				southbound = append(southbound, n)
			}

			fabric, err := topology.BuildFabric(factory, southbound, reserve, maxLayers)
			writeFabric(cmd.OutOrStdout(), fabric)
			if err != nil {
				return findings("topology incomplete: %v", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&servers, "servers", "n", 1, "number of southbound servers to connect")
	cmd.Flags().IntVar(&reserve, "reserve", 0, "ports kept free on each switch per uplink it serves")
	cmd.Flags().IntVar(&maxLayers, "max-layers", 4, "maximum number of switch layers to build")
	return cmd
}
