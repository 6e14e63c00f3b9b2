// Package monitoring provides Prometheus metrics and on-demand resource
// sampling for the export pipeline.
//
// Two capabilities live here:
//   - Metrics: counters, gauges and histograms for pipeline progress and the
//     HTTP surface, exposed via /metrics.
//   - Monitor: process heap/RSS and host load sampling, invoked by the
//     pipeline stages at batch and stage boundaries only. There is no
//     background sampling loop; every reading is tied to a checkpoint.
package monitoring
