// Package pipeline implements the three-stage streaming export:
//
//	Stage 1: Writer streams synthetic records to a line-delimited JSON file
//	Stage 2: Converter turns the line stream into a streamed xlsx workbook
//	Stage 3: Archiver bundles both artifacts into one zip at max compression
//
// Runner orchestrates the stages strictly in sequence for one job run; a
// stage only starts after the previous artifact is flushed and closed.
// Memory stays bounded throughout: no stage materializes more than one
// record or row beyond what its underlying writer buffers internally.
// Progress and resource checkpoints fire at batch and stage boundaries.
package pipeline
