// Package deps reports whether the external binaries handcut shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency handcut relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArg, when set, is passed to the binary to capture a version line.
	VersionArg string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

// VersionRunner returns a binary's combined output for the given argument.
type VersionRunner func(path, arg string) ([]byte, error)

func runVersion(path, arg string) ([]byte, error) {
	return exec.Command(path, arg).CombinedOutput()
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	return CheckBinariesWith(requirements, runVersion)
}

// CheckBinariesWith is CheckBinaries with an injectable version probe.
func CheckBinariesWith(requirements []Requirement, version VersionRunner) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		if req.VersionArg != "" && version != nil {
			if out, err := version(path, req.VersionArg); err == nil {
				status.Version = firstLine(string(out))
			} else {
				status.Detail = fmt.Sprintf("version probe failed: %v", err)
			}
		}
		results = append(results, status)
	}
	return results
}

// MediaRequirements lists the ffmpeg tools frame extraction and probing need.
func MediaRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for frame extraction",
			VersionArg:  "-version",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Used to read the video duration when none is given",
			VersionArg:  "-version",
		},
	}
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

func firstLine(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(line)
}
