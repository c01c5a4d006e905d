package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"go.uber.org/zap"
)

// Tool describes one external executable the pipeline shells out to.
type Tool struct {
	Name       string
	VersionArg string
	MinVersion string
	Remedy     string
}

var requiredTools = []Tool{
	{
		Name:       "yt-dlp",
		VersionArg: "--version",
		MinVersion: "2023.01.01",
		Remedy:     "Install it with pip install yt-dlp or download it from https://github.com/yt-dlp/yt-dlp/releases.",
	},
	{
		Name:       "ffmpeg",
		VersionArg: "-version",
		MinVersion: "4.0",
		Remedy:     "Install it with apt-get install ffmpeg, brew install ffmpeg, or from https://ffmpeg.org/download.html.",
	},
	{
		Name:       "tesseract",
		VersionArg: "--version",
		MinVersion: "4.0",
		Remedy:     "Install it with apt-get install tesseract-ocr or brew install tesseract, plus language data packages.",
	},
}

// Result reports the availability of a single tool.
type Result struct {
	Tool      string
	Available bool
	Version   string
	VersionOK bool
}

// Checker probes the external tools once at startup so a missing binary
// fails the run before any work is done.
type Checker struct {
	tools   []Tool
	timeout time.Duration
	logger  *zap.Logger
}

func NewChecker(logger *zap.Logger) *Checker {
	return &Checker{
		tools:   requiredTools,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// CheckTool invokes the tool's version flag and parses the reported version.
func (c *Checker) CheckTool(ctx context.Context, tool Tool) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, tool.Name, tool.VersionArg).Output()
	if err != nil {
		return Result{Tool: tool.Name}
	}

	version := parseVersion(string(out))
	return Result{
		Tool:      tool.Name,
		Available: true,
		Version:   version,
		VersionOK: compareVersions(version, tool.MinVersion) >= 0,
	}
}

// ValidateAll checks every required tool and aggregates the failures into a
// single dependency error so the user sees all remediation steps at once.
func (c *Checker) ValidateAll(ctx context.Context) error {
	var names, failures []string
	for _, tool := range c.tools {
		res := c.CheckTool(ctx, tool)
		switch {
		case !res.Available:
			c.logger.Error("required tool missing", zap.String("tool", tool.Name))
			names = append(names, tool.Name)
			failures = append(failures, fmt.Sprintf("%s is not installed or not on PATH. %s", tool.Name, tool.Remedy))
		case !res.VersionOK:
			c.logger.Error("required tool below minimum version",
				zap.String("tool", tool.Name),
				zap.String("version", res.Version),
				zap.String("minimum", tool.MinVersion),
			)
			names = append(names, tool.Name)
			failures = append(failures, fmt.Sprintf("%s version %s is below the required %s. %s",
				tool.Name, res.Version, tool.MinVersion, tool.Remedy))
		default:
			c.logger.Debug("tool available",
				zap.String("tool", tool.Name),
				zap.String("version", res.Version),
			)
		}
	}

	if len(failures) > 0 {
		return entity.ErrDependencyMissing(strings.Join(names, ", "), strings.Join(failures, " "), nil)
	}
	return nil
}

// parseVersion pulls the version token out of a tool's banner line. Handles
// "ffmpeg version 6.0" style banners, "tesseract 5.3.0" style banners, and
// yt-dlp's bare version output.
func parseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if _, after, ok := strings.Cut(line, "version "); ok {
		if fields := strings.Fields(after); len(fields) > 0 {
			return fields[0]
		}
	}
	fields := strings.Fields(line)
	switch {
	case len(fields) >= 2:
		return fields[1]
	case len(fields) == 1:
		return fields[0]
	default:
		return ""
	}
}

// compareVersions orders two dotted version strings numerically, treating
// any non-digit run as a separator and missing parts as zero.
func compareVersions(a, b string) int {
	ap, bp := versionParts(a), versionParts(b)
	for i := 0; i < len(ap) || i < len(bp); i++ {
		var x, y int
		if i < len(ap) {
			x = ap[i]
		}
		if i < len(bp) {
			y = bp[i]
		}
		if x != y {
			return x - y
		}
	}
	return 0
}

func versionParts(v string) []int {
	isSep := func(r rune) bool { return r < '0' || r > '9' }
	var parts []int
	for _, piece := range strings.FieldsFunc(v, isSep) {
		n, err := strconv.Atoi(piece)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	return parts
}
