package dvr

import "math"

// downsampleLTTB reduces a time series to at most threshold points using
// Largest-Triangle-Three-Buckets: keep the first and last raw points,
// partition the interior into threshold-2 buckets, and from each bucket
// keep the point forming the largest-area triangle with the previously
// selected point and the average of the next bucket.
//
// Naive every-Nth decimation erases the peaks and troughs that matter for
// trend inspection; LTTB preserves visual shape under a strict size bound.
//
// A series already within the bound is returned unchanged.
func downsampleLTTB(ts []int64, vs []float64, threshold int) ([]int64, []float64) {
	n := len(ts)
	if threshold <= 0 || threshold >= n {
		return ts, vs
	}
	if n < 3 || threshold <= 2 {
		// Nothing between first and last worth triangulating.
		if n < 2 {
			return ts, vs
		}
		return []int64{ts[0], ts[n-1]}, []float64{vs[0], vs[n-1]}
	}

	outTs := make([]int64, 0, threshold)
	outVs := make([]float64, 0, threshold)

	// Bucket width over the interior points.
	every := float64(n-2) / float64(threshold-2)

	a := 0 // index of the previously selected point
	outTs = append(outTs, ts[0])
	outVs = append(outVs, vs[0])

	for i := 0; i < threshold-2; i++ {
		// Current bucket bounds.
		start := int(math.Floor(float64(i)*every)) + 1
		end := int(math.Floor(float64(i+1)*every)) + 1
		if end >= n-1 {
			end = n - 1
		}

		// Average point of the next bucket (the last bucket's "next" is
		// the final raw point).
		nextStart := end
		nextEnd := int(math.Floor(float64(i+2)*every)) + 1
		if nextEnd >= n {
			nextEnd = n
		}
		var avgTs, avgV float64
		count := nextEnd - nextStart
		if count <= 0 {
			avgTs = float64(ts[n-1])
			avgV = vs[n-1]
		} else {
			for j := nextStart; j < nextEnd; j++ {
				avgTs += float64(ts[j])
				avgV += vs[j]
			}
			avgTs /= float64(count)
			avgV /= float64(count)
		}

		// Pick the bucket point with the largest triangle area.
		aTs := float64(ts[a])
		aV := vs[a]
		maxArea := -1.0
		selected := start
		for j := start; j < end; j++ {
			area := math.Abs((aTs-avgTs)*(vs[j]-aV)-(aTs-float64(ts[j]))*(avgV-aV)) / 2
			if area > maxArea {
				maxArea = area
				selected = j
			}
		}

		outTs = append(outTs, ts[selected])
		outVs = append(outVs, vs[selected])
		a = selected
	}

	outTs = append(outTs, ts[n-1])
	outVs = append(outVs, vs[n-1])

	return outTs, outVs
}
