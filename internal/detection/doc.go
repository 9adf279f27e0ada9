// Package detection turns a video into an ordered list of accepted hand
// boundaries. It extracts frames, classifies them in sequential batches with
// bounded parallelism inside each batch, then applies the confidence and
// hand-duration filters.
package detection
