package dedup

import (
	"fmt"
	"strings"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/imagehash"
)

// Strategy picks which frame of a cluster becomes the slide image.
type Strategy string

const (
	StrategyFirst  Strategy = "first"
	StrategyMiddle Strategy = "middle"
	StrategyLast   Strategy = "last"
)

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyFirst:
		return StrategyFirst, nil
	case StrategyMiddle:
		return StrategyMiddle, nil
	case StrategyLast:
		return StrategyLast, nil
	default:
		return "", fmt.Errorf("unknown representative strategy %q (expected first, middle or last)", s)
	}
}

// Grouper collapses consecutive near-identical frames into slide clusters.
// Each cluster's first frame is its anchor: a frame joins the open cluster
// while its similarity to the anchor stays at or above the threshold, and a
// drop below it closes the cluster and opens a new one. Single pass, order
// preserving.
type Grouper struct {
	threshold float64
	strategy  Strategy
}

func NewGrouper(threshold float64, strategy Strategy) (*Grouper, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be within [0.0, 1.0], got %v", threshold)
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	return &Grouper{threshold: threshold, strategy: strategy}, nil
}

// Group clusters fingerprinted frames. An empty input is an error: a video
// that produced frames must yield at least one slide, so nothing to group
// means the upstream stages misbehaved.
func (g *Grouper) Group(frames []entity.FrameRecord) ([][]entity.FrameRecord, error) {
	if len(frames) == 0 {
		return nil, entity.ErrNoSlidesFound()
	}

	var clusters [][]entity.FrameRecord
	current := []entity.FrameRecord{frames[0]}

	for _, frame := range frames[1:] {
		anchor := current[0]
		if imagehash.Similarity(anchor.Fingerprint, frame.Fingerprint) >= g.threshold {
			current = append(current, frame)
			continue
		}
		clusters = append(clusters, current)
		current = []entity.FrameRecord{frame}
	}
	clusters = append(clusters, current)

	return clusters, nil
}

// Representative returns the cluster frame selected by the configured
// strategy. Middle is the frame at index len/2.
func (g *Grouper) Representative(cluster []entity.FrameRecord) entity.FrameRecord {
	switch g.strategy {
	case StrategyFirst:
		return cluster[0]
	case StrategyLast:
		return cluster[len(cluster)-1]
	default:
		return cluster[len(cluster)/2]
	}
}
