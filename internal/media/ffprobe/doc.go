// Package ffprobe provides a typed wrapper around ffprobe JSON output, used
// to learn a recording's duration and video geometry before frames are sampled.
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Probe: Inspect plus the checks detection needs (a video stream and a
//     finite positive duration)
package ffprobe
