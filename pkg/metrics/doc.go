/*
Package metrics defines and registers BRindeX's Prometheus metrics and the
/health, /ready, and /live HTTP handlers.

Gauges track catalog size (brindex_volumes_total, brindex_files_indexed_total);
histograms track ingest and poll latency; counters track USN changes applied
and journal anomalies. Health is a small registry any worker can update with
RegisterComponent/UpdateComponent; GetReadiness additionally requires the
catalog and orchestrator components to be registered and healthy before
reporting ready.
*/
package metrics
