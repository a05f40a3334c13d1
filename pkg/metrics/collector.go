package metrics

import (
	"context"
	"time"

	"github.com/ram-shortage/brindex/pkg/catalog"
)

// Collector periodically snapshots catalog-wide counts into gauges; the
// per-event counters (ingest errors, USN changes applied, journal
// anomalies) are updated directly by their owning workers instead.
type Collector struct {
	store  catalog.Store
	stopCh chan struct{}
}

// NewCollector creates a collector over store. The caller retains
// ownership of store; Collector never closes it.
func NewCollector(store catalog.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting on a 15s interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	volumes, err := c.store.ListVolumes(ctx)
	if err != nil {
		return
	}

	stateCounts := make(map[string]int)
	for _, v := range volumes {
		stateCounts[string(v.State.Kind)]++

		count, err := c.store.GetFileCount(ctx, &v.ID)
		if err != nil {
			continue
		}
		FilesIndexedTotal.WithLabelValues(v.DriveLetter).Set(float64(count))
	}
	for _, kind := range []string{"Online", "Offline", "Indexing", "Rescanning", "Disabled"} {
		VolumesTotal.WithLabelValues(kind).Set(float64(stateCounts[kind]))
	}
}
