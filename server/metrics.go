// Copyright (C) 2008-2018 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rinmyo/uroj-go/fsm"
)

// metricsTickInterval is how often the gauge-style metrics (active instance
// count) are resampled from the pool, rather than pushed on every change.
const metricsTickInterval = 5 * time.Second

var (
	activeInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "urojd",
		Name:      "active_instances",
		Help:      "Number of interlocking instances currently registered in the pool.",
	})

	activeTrains = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "urojd",
		Name:      "active_trains",
		Help:      "Number of live trains summed across every registered instance.",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urojd",
		Name:      "commands_total",
		Help:      "Hub commands processed, by object, action and outcome.",
	}, []string{"object", "action", "outcome"})

	framesBroadcastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urojd",
		Name:      "frames_broadcast_total",
		Help:      "State-change frames pushed to subscribers, by kind.",
	}, []string{"kind"})

	routesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urojd",
		Name:      "routes_created_total",
		Help:      "create_route attempts, by outcome (ok, conflict).",
	}, []string{"outcome"})

	routeLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "urojd",
		Name:      "route_latency_seconds",
		Help:      "Time spent inside create_route/cancel_route's validate+commit phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})
)

// startMetricsTicker periodically resamples the active instance and train
// counts. It runs for the life of the process; there is no shutdown hook
// because the server package itself never stops short of process exit.
func startMetricsTicker() {
	go func() {
		ticker := time.NewTicker(metricsTickInterval)
		defer ticker.Stop()
		for range ticker.C {
			activeInstances.Set(float64(instances.Len()))
			activeTrains.Set(float64(instances.TotalTrains()))
		}
	}()
}

// installMetricsEndpoint registers the Prometheus scrape handler under
// /metrics, read by HttpdStart alongside / and /ws.
func installMetricsEndpoint() {
	http.Handle("/metrics", promhttp.Handler())
}

// recordCommand tallies one dispatched hub command by outcome, called from
// instanceObject.dispatch for every action it handles.
func recordCommand(object, action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	commandsTotal.WithLabelValues(object, action, outcome).Inc()
}

// recordRouteOutcome tallies a create_route attempt separately from the
// generic command counter, since route conflicts are an expected, frequent
// outcome worth its own series rather than being folded into "error".
func recordRouteOutcome(err error) {
	if err == nil {
		routesCreatedTotal.WithLabelValues("ok").Inc()
	} else {
		routesCreatedTotal.WithLabelValues("conflict").Inc()
	}
}

// recordFrame tallies one frame pushed out to game_update subscribers.
func recordFrame(kind fsm.FrameKind) {
	framesBroadcastTotal.WithLabelValues(string(kind)).Inc()
}

// recordRouteLatency records how long a route validate+commit phase took,
// under phase "create" or "cancel".
func recordRouteLatency(phase string, d time.Duration) {
	routeLatencySeconds.WithLabelValues(phase).Observe(d.Seconds())
}
