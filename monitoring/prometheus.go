package monitoring

import (
	"net/http"
	"time"

	"chorus/agent"
	"chorus/engine"
	"chorus/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus is a Sink backed by Prometheus collectors.
type Prometheus struct {
	agentEnergy *prometheus.GaugeVec
	agentRate   *prometheus.GaugeVec
	agentOnline *prometheus.GaugeVec
	tasksTotal  *prometheus.GaugeVec
	queueDepth  *prometheus.GaugeVec
	workerLimit prometheus.Gauge
	workersBusy prometheus.Gauge
	registry    *prometheus.Registry
}

// NewPrometheus constructs the sink against the given registerer. Passing nil
// creates a fresh registry; callers that want a fresh registry per instance
// (for example in tests) should do the same.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	p := &Prometheus{
		registry: reg,
		agentEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "agent",
			Name:      "energy",
			Help:      "Current energy level per agent (0-100).",
		}, []string{"agent", "mood", "mode"}),
		agentRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "agent",
			Name:      "activity_rate",
			Help:      "Current bounded activity rate per agent.",
		}, []string{"agent"}),
		agentOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "agent",
			Name:      "online",
			Help:      "Whether the agent participates in arbitration (0 or 1).",
		}, []string{"agent"}),
		tasksTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "engine",
			Name:      "tasks_total",
			Help:      "Task counts by outcome. Terminal failures are reported separately from retries.",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Tasks waiting by queue (ready or delayed).",
		}, []string{"queue"}),
		workerLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "engine",
			Name:      "worker_limit",
			Help:      "Current dynamic worker concurrency limit.",
		}),
		workersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chorus",
			Subsystem: "engine",
			Name:      "workers_busy",
			Help:      "Workers currently executing a task.",
		}),
	}

	reg.MustRegister(p.agentEnergy, p.agentRate, p.agentOnline,
		p.tasksTotal, p.queueDepth, p.workerLimit, p.workersBusy)
	return p
}

// ObserveAgents records per-agent gauges.
func (p *Prometheus) ObserveAgents(snapshots []agent.Snapshot) {
	p.agentEnergy.Reset()
	for _, s := range snapshots {
		p.agentEnergy.WithLabelValues(s.ID, s.Mood.String(), s.Mode.String()).Set(s.Energy)
		p.agentRate.WithLabelValues(s.ID).Set(s.Rate)
		online := 0.0
		if s.Online {
			online = 1.0
		}
		p.agentOnline.WithLabelValues(s.ID).Set(online)
	}
}

// ObserveEngine records task engine counters.
func (p *Prometheus) ObserveEngine(stats engine.Stats) {
	p.tasksTotal.WithLabelValues("submitted").Set(float64(stats.Submitted))
	p.tasksTotal.WithLabelValues("succeeded").Set(float64(stats.Succeeded))
	p.tasksTotal.WithLabelValues("retried").Set(float64(stats.Retries))
	p.tasksTotal.WithLabelValues("failed_terminal").Set(float64(stats.TerminalFailures))
	p.tasksTotal.WithLabelValues("cancelled").Set(float64(stats.Cancelled))
	p.queueDepth.WithLabelValues("ready").Set(float64(stats.Queued))
	p.queueDepth.WithLabelValues("delayed").Set(float64(stats.Delayed))
	p.workerLimit.Set(float64(stats.WorkerLimit))
	p.workersBusy.Set(float64(stats.Running))
}

// Serve exposes /metrics on addr until the server fails. Run it on its own
// goroutine.
func (p *Prometheus) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.InfoLog.Printf("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.ErrorLog.Printf("metrics server: %v", err)
	}
}
