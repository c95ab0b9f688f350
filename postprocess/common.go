package postprocess

import (
	"math"
	"sort"
)

// clamp restricts the value val to be within the range min and max
func clamp(val, min, max float64) float64 {

	if val > min {

		if val < max {
			return val
		}

		return max
	}

	return min
}

// sortIndicesByScore returns the indices of scores ordered by descending
// score.  Equal scores keep their original relative order
func sortIndicesByScore(scores []float64) []int {

	indices := make([]int, len(scores))

	for i := range indices {
		indices[i] = i
	}

	sort.SliceStable(indices, func(i, j int) bool {
		return scores[indices[i]] > scores[indices[j]]
	})

	return indices
}

// nms implements a greedy Non-Maximum Suppression (NMS) over the boxes of a
// single class.  The group slice holds indices into boxes sorted by
// descending score, the indices kept are returned in the same order
func nms(boxes [][4]float64, group []int, threshold float64) []int {

	keep := make([]int, 0, len(group))
	suppressed := make([]bool, len(group))

	for i, n := range group {

		if suppressed[i] {
			continue
		}

		keep = append(keep, n)

		for j := i + 1; j < len(group); j++ {

			if suppressed[j] {
				continue
			}

			if BoxIoU(boxes[n], boxes[group[j]]) > threshold {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// BoxIoU calculates the Intersection over Union (IoU) of two boxes given in
// [x1, y1, x2, y2] format.  Coordinates are continuous so no pixel
// inclusive +1 adjustment is made
func BoxIoU(a, b [4]float64) float64 {

	w := math.Max(0, math.Min(a[2], b[2])-math.Max(a[0], b[0]))
	h := math.Max(0, math.Min(a[3], b[3])-math.Max(a[1], b[1]))
	intersection := w * h

	area0 := (a[2] - a[0]) * (a[3] - a[1])
	area1 := (b[2] - b[0]) * (b[3] - b[1])

	union := area0 + area1 - intersection

	if union <= 0 {
		return 0.0
	}

	return intersection / union
}

// BatchedNMS performs Non-Maximum Suppression independently for each class
// label.  It returns the indices of the boxes kept ordered by descending
// score
func BatchedNMS(boxes [][4]float64, scores []float64, labels []int,
	threshold float64) []int {

	if len(boxes) == 0 {
		return []int{}
	}

	order := sortIndicesByScore(scores)

	// group the sorted indices by class label so each class is only
	// compared against its own boxes
	groups := make(map[int][]int)

	for _, n := range order {
		groups[labels[n]] = append(groups[labels[n]], n)
	}

	kept := make([]bool, len(boxes))

	for _, group := range groups {
		for _, n := range nms(boxes, group, threshold) {
			kept[n] = true
		}
	}

	// merge the survivors of all classes back in descending score order
	keep := make([]int, 0, len(order))

	for _, n := range order {
		if kept[n] {
			keep = append(keep, n)
		}
	}

	return keep
}
