// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/onosproject/fabric-reconciler/pkg/synchronizer"
	"github.com/onosproject/fabric-reconciler/pkg/topology"
)

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// writeReport prints one row per switch domain, followed by the drift of each drifted domain
// when verbose is set.
func writeReport(out io.Writer, report *synchronizer.Report, verbose bool) {
	table := newTable(out, "Switch", "Domain", "Status", "Outcome", "Detail")
	for _, res := range report.Results {
		if len(res.Domains) == 0 {
			table.Append([]string{res.Switch, "-", "failed", "-", errString(res.Err)})
			continue
		}
		for _, d := range res.Domains {
			outcome := "-"
			if d.Rollout != nil {
				outcome = string(d.Rollout.Outcome)
			}
			detail := errString(d.Err)
			if detail == "" && len(d.Drift) > 0 {
				detail = fmt.Sprintf("%d records differ", len(d.Drift))
			}
			table.Append([]string{res.Switch, string(d.Domain), d.Status, outcome, detail})
		}
	}
	table.Render()

	if verbose {
		for _, res := range report.Results {
			for _, d := range res.Domains {
				if len(d.Drift) == 0 {
					continue
				}
				fmt.Fprintf(out, "\n%s %s:\n  %s\n", res.Switch, d.Domain, strings.Join(d.Drift, "\n  "))
			}
		}
	}

	failed := report.Failed()
	fmt.Fprintf(out, "\n%d of %d switches succeeded\n", len(report.Results)-len(failed), len(report.Results))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}

// writeFabric prints the nodes of every layer above the southbound one.
func writeFabric(out io.Writer, fabric *topology.Fabric) {
	table := newTable(out, "Layer", "Node", "Arch", "Model", "Ports Used", "Neighbors")
	for i, layer := range fabric.Layers {
		if i == 0 {
			continue
		}
		for _, n := range layer {
			var neighbors []string
			for _, peer := range n.Neighbors() {
				neighbors = append(neighbors, peer.ID)
			}
			table.Append([]string{
				fmt.Sprint(i),
				n.ID,
				string(n.Arch),
				n.Model,
				fmt.Sprintf("%d/%d", n.OccupiedPorts(), len(n.Ports())),
				summarize(neighbors, 6),
			})
		}
	}
	table.Render()
	fmt.Fprintf(out, "\n%d switches above %d southbound nodes\n", len(fabric.Switches()), len(fabric.Layers[0]))
}

func summarize(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(items[:max], ", "), len(items)-max)
}
