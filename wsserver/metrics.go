/*
 * MIT License
 *
 * Copyright (c) 2026 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package wsserver

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	activeSessionsGauge *prometheus.GaugeVec
	acceptedTotal       *prometheus.CounterVec
	rejectedTotal       *prometheus.CounterVec
)

// registerMetrics registers this package's collectors with the default
// registry exactly once, regardless of how many Server instances are
// built over the process lifetime.
func registerMetrics() {
	metricsOnce.Do(func() {
		activeSessionsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wscore",
			Subsystem: "server",
			Name:      "active_sessions",
			Help:      "Live sessions currently held open by a server instance.",
		}, []string{"port"})

		acceptedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wscore",
			Subsystem: "server",
			Name:      "accepted_total",
			Help:      "Connections that completed handshake and session start.",
		}, []string{"port"})

		rejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wscore",
			Subsystem: "server",
			Name:      "rejected_total",
			Help:      "Connections rejected for capacity, handshake failure, or start failure.",
		}, []string{"port"})

		prometheus.MustRegister(activeSessionsGauge, acceptedTotal, rejectedTotal)
	})
}
