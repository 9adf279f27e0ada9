// Package frames samples still JPEG frames from a recording with ffmpeg.
//
// Frames are taken at a fixed interval, one ffmpeg invocation at a time, each
// read into memory and deleted before the next seek so disk use stays at a
// single image. All scratch files live in a per-run work directory guarded by
// an advisory lock; the directory is removed whether extraction succeeds or
// fails, and SweepStale clears directories left behind by crashed runs.
package frames
