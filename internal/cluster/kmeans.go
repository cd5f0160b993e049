// Package cluster implements seeded k-means over dense feature rows.
package cluster

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// Defaults for Options fields left at zero.
const (
	DefaultK             = 3
	DefaultMaxIterations = 300
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = eris.New("cluster: k must be positive")
	// ErrTooFewPoints is returned when k exceeds the number of rows.
	ErrTooFewPoints = eris.New("cluster: k exceeds number of points")
	// ErrNoPoints is returned for an empty matrix.
	ErrNoPoints = eris.New("cluster: no points to cluster")
	// ErrRagged is returned when rows differ in length.
	ErrRagged = eris.New("cluster: rows have different dimensions")
)

// Options configures a k-means run.
type Options struct {
	K             int
	Seed          uint64
	MaxIterations int
}

// Result is the outcome of a k-means run. Labels are arbitrary integers in
// [0, K); callers must not read meaning into their order.
type Result struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
	Converged  bool
}

// Sizes returns the number of points per label.
func (r *Result) Sizes() []int {
	sizes := make([]int, len(r.Centroids))
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// Validate checks that k clusters can be formed from n points.
func Validate(k, n int) error {
	if k <= 0 {
		return eris.Wrapf(ErrInvalidK, "k=%d", k)
	}
	if n == 0 {
		return ErrNoPoints
	}
	if k > n {
		return eris.Wrapf(ErrTooFewPoints, "k=%d, points=%d", k, n)
	}
	return nil
}

// KMeans partitions points into opts.K groups minimizing the within-cluster
// sum of squared Euclidean distances. Centroids are initialized with
// k-means++ driven by a PCG source seeded from opts.Seed, so the same
// (points, K, Seed) always yields the same labels. Iteration stops when no
// point changes cluster or MaxIterations is reached.
func KMeans(points [][]float64, opts Options) (*Result, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if err := Validate(opts.K, len(points)); err != nil {
		return nil, err
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, eris.Wrapf(ErrRagged, "row %d has %d values, want %d", i, len(p), dim)
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	centroids := initPlusPlus(points, opts.K, rng)

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	res := &Result{Labels: labels, Centroids: centroids}
	for it := 1; it <= opts.MaxIterations; it++ {
		res.Iterations = it
		changed := assign(points, centroids, labels)
		if !changed {
			res.Converged = true
			break
		}
		update(points, centroids, labels)
		if reseedEmpty(points, centroids, labels) {
			update(points, centroids, labels)
		}
	}

	res.Inertia = inertia(points, centroids, labels)
	return res, nil
}

// initPlusPlus picks the first centroid uniformly and each following one
// with probability proportional to its squared distance from the nearest
// chosen centroid. When every remaining point coincides with a centroid the
// lowest-index unchosen point is used.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	chosen := make([]bool, len(points))
	first := rng.IntN(len(points))
	chosen[first] = true
	centroids := [][]float64{clone(points[first])}

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for i, d := range dist {
			if !chosen[i] {
				total += d
			}
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				if chosen[i] || d == 0 {
					continue
				}
				target -= d
				next = i
				if target <= 0 {
					break
				}
			}
		}
		if next < 0 {
			for i := range points {
				if !chosen[i] {
					next = i
					break
				}
			}
		}

		chosen[next] = true
		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// assign moves every point to its nearest centroid. A point stays put when
// its current centroid is tied for nearest; otherwise the lowest label wins.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := labels[i], math.Inf(1)
		if best >= 0 {
			bestDist = sqDist(p, centroids[best])
		}
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// update recomputes each centroid as the mean of its members. Centroids with
// no members are left untouched for reseedEmpty.
func update(points, centroids [][]float64, labels []int) {
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, len(centroids[c]))
	}
	for i, p := range points {
		l := labels[i]
		counts[l]++
		for j, v := range p {
			sums[l][j] += v
		}
	}
	for c, sum := range sums {
		if counts[c] == 0 {
			continue
		}
		for j := range sum {
			centroids[c][j] = sum[j] / float64(counts[c])
		}
	}
}

// reseedEmpty moves each empty cluster's centroid onto the point farthest
// from its current centroid, taken from a cluster with more than one member.
// It reports whether any label moved.
func reseedEmpty(points, centroids [][]float64, labels []int) bool {
	moved := false
	counts := make([]int, len(centroids))
	for _, l := range labels {
		counts[l]++
	}
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range points {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(p, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			return moved
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		centroids[c] = clone(points[far])
		moved = true
	}
	return moved
}

func inertia(points, centroids [][]float64, labels []int) float64 {
	var sum float64
	for i, p := range points {
		sum += sqDist(p, centroids[labels[i]])
	}
	return sum
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
