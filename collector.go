package arena

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports an allocator's Stats as Prometheus metrics. Values are
// read from a fresh snapshot on every scrape.
type Collector struct {
	src StatsSource

	capacity    *prometheus.Desc
	reserved    *prometheus.Desc
	live        *prometheus.Desc
	freeRegions *prometheus.Desc
	allocs      *prometheus.Desc
	releases    *prometheus.Desc
	failures    *prometheus.Desc
}

// NewCollector returns a Collector for src. Every metric carries a strategy
// label plus the given constant labels.
func NewCollector(src StatsSource, constLabels prometheus.Labels) *Collector {
	labels := prometheus.Labels{"strategy": src.Stats().Strategy}
	for k, v := range constLabels {
		labels[k] = v
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, nil, labels)
	}
	return &Collector{
		src:         src,
		capacity:    desc("arena_capacity_bytes", "Size of the arena in bytes."),
		reserved:    desc("arena_reserved_bytes", "Bytes of the arena not available to new allocations."),
		live:        desc("arena_live_allocations", "Allocations handed out and not yet released."),
		freeRegions: desc("arena_free_regions", "Regions on the free list."),
		allocs:      desc("arena_allocations_total", "Total successful allocations."),
		releases:    desc("arena_releases_total", "Total releases."),
		failures:    desc("arena_allocation_failures_total", "Total allocations that ran out of memory."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.reserved
	ch <- c.live
	ch <- c.freeRegions
	ch <- c.allocs
	ch <- c.releases
	ch <- c.failures
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.reserved, prometheus.GaugeValue, float64(s.Reserved))
	ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(s.Live))
	ch <- prometheus.MustNewConstMetric(c.freeRegions, prometheus.GaugeValue, float64(s.FreeRegions))
	ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(s.Allocs))
	ch <- prometheus.MustNewConstMetric(c.releases, prometheus.CounterValue, float64(s.Releases))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
}
