package chart

// Downsample decimates points to at most maxPoints for rendering.
// It reuses dst when its capacity is sufficient and returns the result.
// The last point is always kept so the newest value stays visible.
func Downsample(dst []Point, points []Point, maxPoints int) []Point {
	if maxPoints <= 0 || len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		result := make([]Point, len(points))
		copy(result, points)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	step := float64(len(points)) / float64(maxPoints)
	for i := range maxPoints - 1 {
		dst = append(dst, points[int(float64(i)*step)])
	}
	return append(dst, points[len(points)-1])
}
