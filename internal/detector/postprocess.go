package detector

import (
	"cmp"
	"fmt"
	"slices"
)

// candidate is one decoded anchor in model input coordinates
type candidate struct {
	x1, y1, x2, y2 float64
	classID        int
	score          float64
}

// normalizedCoordLimit separates exports that emit boxes as fractions of the
// input size from those that emit pixels.
const normalizedCoordLimit = 2.0

// decodeYOLO decodes a YOLOv8 detection head. dims is the output shape,
// either [1, 4+C, N] or [1, N, 4+C]; the smaller of the two trailing
// dimensions holds the box and class channels. Anchors whose best class score
// does not exceed threshold are dropped.
func decodeYOLO(out []float32, dims []int, threshold float64, inputSize int) ([]candidate, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	channelsFirst := dims[1] < dims[2]
	channels, anchors := dims[2], dims[1]
	if channelsFirst {
		channels, anchors = dims[1], dims[2]
	}
	if channels < 5 {
		return nil, fmt.Errorf("output shape %v has no class channels", dims)
	}
	if len(out) < channels*anchors {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(out), dims, channels*anchors)
	}

	at := func(anchor, channel int) float64 {
		if channelsFirst {
			return float64(out[channel*anchors+anchor])
		}
		return float64(out[anchor*channels+channel])
	}

	var cands []candidate
	maxCoord := 0.0
	for a := range anchors {
		best, bestScore := 0, at(a, 4)
		for c := 5; c < channels; c++ {
			if s := at(a, c); s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if bestScore <= threshold {
			continue
		}

		cx, cy, w, h := at(a, 0), at(a, 1), at(a, 2), at(a, 3)
		cand := candidate{
			x1: cx - w/2, y1: cy - h/2,
			x2: cx + w/2, y2: cy + h/2,
			classID: best, score: bestScore,
		}
		maxCoord = max(maxCoord, cand.x2, cand.y2)
		cands = append(cands, cand)
	}

	if maxCoord <= normalizedCoordLimit {
		s := float64(inputSize)
		for i := range cands {
			cands[i].x1 *= s
			cands[i].y1 *= s
			cands[i].x2 *= s
			cands[i].y2 *= s
		}
	}
	return cands, nil
}

// nonMaxSuppression keeps the highest scoring box among same-class boxes
// overlapping by more than iouThreshold, returning at most maxDetections
// boxes ordered by score.
func nonMaxSuppression(cands []candidate, iouThreshold float64, maxDetections int) []candidate {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})

	kept := make([]candidate, 0, min(len(cands), maxDetections))
	for _, c := range cands {
		if len(kept) == maxDetections {
			break
		}
		suppressed := false
		for _, k := range kept {
			if k.classID == c.classID && iou(k, c) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	ix := max(0, min(a.x2, b.x2)-max(a.x1, b.x1))
	iy := max(0, min(a.y2, b.y2)-max(a.y1, b.y1))
	inter := ix * iy
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
