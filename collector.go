package slabpool

import "github.com/prometheus/client_golang/prometheus"

// MetricsSource is anything that can report PoolMetrics. Both MemoryPool and
// SyncExpandablePool satisfy it.
type MetricsSource interface {
	Metrics() PoolMetrics
}

// Collector exports a pool's metrics to Prometheus. Every metric carries a
// constant "pool" label.
type Collector struct {
	src MetricsSource

	inUse       *prometheus.Desc
	free        *prometheus.Desc
	capacity    *prometheus.Desc
	blocks      *prometheus.Desc
	maxBlocks   *prometheus.Desc
	blockBytes  *prometheus.Desc
	utilization *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src labelled with name.
func NewCollector(name string, src MetricsSource) *Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("slabpool", "", metric), help, nil, labels)
	}
	return &Collector{
		src:         src,
		inUse:       desc("in_use_elements", "Live elements in the pool."),
		free:        desc("free_elements", "Elements that can still be allocated."),
		capacity:    desc("capacity_elements", "Maximum number of live elements."),
		blocks:      desc("blocks", "Blocks currently held."),
		maxBlocks:   desc("max_blocks", "Maximum number of blocks."),
		blockBytes:  desc("block_bytes", "Bytes of backing storage per block."),
		utilization: desc("utilization_ratio", "Ratio of live elements to capacity."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inUse
	ch <- c.free
	ch <- c.capacity
	ch <- c.blocks
	ch <- c.maxBlocks
	ch <- c.blockBytes
	ch <- c.utilization
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(c.inUse, float64(m.InUse))
	gauge(c.free, float64(m.Free))
	gauge(c.capacity, float64(m.Capacity))
	gauge(c.blocks, float64(m.Blocks))
	gauge(c.maxBlocks, float64(m.MaxBlocks))
	gauge(c.blockBytes, float64(m.BlockBytes))
	gauge(c.utilization, m.Utilization)
}
