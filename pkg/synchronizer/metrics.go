// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KpiSynchronizationTotal counts reconciliation passes per switch
	KpiSynchronizationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_reconciler_synchronization_total",
		Help: "The total number of reconciliation passes per switch",
	}, []string{"switch"})

	// KpiSynchronizationDuration observes how long a switch took to reconcile
	KpiSynchronizationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fabric_reconciler_synchronization_duration_seconds",
		Help:    "The duration of reconciliation passes per switch",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"switch"})

	// KpiDriftRecords is the number of differing records found by the latest audit
	KpiDriftRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fabric_reconciler_drift_records",
		Help: "The number of records differing from the desired configuration",
	}, []string{"switch", "domain"})

	// KpiRolloutOutcome counts rollout attempts by outcome
	KpiRolloutOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_reconciler_rollout_outcome_total",
		Help: "The total number of rollout attempts by outcome",
	}, []string{"outcome"})
)
