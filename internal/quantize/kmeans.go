package quantize

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// KMeans is the iterative clustering quantizer in RGB space.
//
// With Options.Nondeterministic unset, centers are seeded with k-means++
// from a PCG source keyed by Options.Seed and refined with Lloyd iterations
// until no center moves more than Options.Epsilon or Options.MaxIterations
// is reached. Identical input, K, seed, cap and epsilon give identical
// output.
//
// With Options.Nondeterministic set, partitioning is delegated to
// muesli/kmeans, whose random initialization is not reproducible across runs.
// That library does not report its iterations, so Stats.Iterations is zero
// and Stats.Converged comes from one extra Lloyd step over its centers.
type KMeans struct {
	opts Options
}

// Quantize implements Quantizer. Fewer distinct colors than K is not an
// error: surplus centers duplicate existing ones and own no pixels.
func (q *KMeans) Quantize(buf *segment.PixelBuffer, k int) (*Result, error) {
	if err := validate(buf, k); err != nil {
		return nil, err
	}

	obs, distinct := sample(buf, q.opts.MaxSamples)

	var (
		centers []clusters.Coordinates
		stats   Stats
	)
	if q.opts.Nondeterministic && len(obs) > k {
		var err error
		centers, err = partitionUnseeded(obs, k)
		if err != nil {
			return nil, err
		}
		stats = Stats{Converged: settled(obs, centers, q.opts.Epsilon)}
	} else {
		centers, stats = q.lloyd(obs, k)
	}
	stats.DistinctColors = distinct

	pal := make(segment.Palette, 0, k)
	for _, c := range centers {
		pal = append(pal, toRGB(c))
	}
	pal = pad(pal, k)

	return &Result{
		Palette: pal,
		Labels:  q.opts.Ops.Assign(buf, pal),
		Stats:   stats,
	}, nil
}

// sample strides over the buffer so at most maxSamples observations are
// clustered. It also reports the number of distinct colors seen.
func sample(buf *segment.PixelBuffer, maxSamples int) (clusters.Observations, int) {
	n := buf.Width * buf.Height
	step := 1
	if n > maxSamples {
		step = int(math.Sqrt(float64(n)/float64(maxSamples))) + 1
	}

	seen := make(map[segment.RGB]struct{})
	obs := make(clusters.Observations, 0, min(n, maxSamples))
	for y := 0; y < buf.Height; y += step {
		for x := 0; x < buf.Width; x += step {
			c := buf.At(x, y)
			seen[c] = struct{}{}
			obs = append(obs, clusters.Coordinates{float64(c.R), float64(c.G), float64(c.B)})
		}
	}
	return obs, len(seen)
}

func (q *KMeans) lloyd(obs clusters.Observations, k int) ([]clusters.Coordinates, Stats) {
	rng := rand.New(rand.NewPCG(q.opts.Seed, q.opts.Seed^0x9e3779b97f4a7c15))

	cc := make(clusters.Clusters, k)
	for i, c := range seedPlusPlus(obs, k, rng) {
		cc[i] = clusters.Cluster{Center: c}
	}

	stats := Stats{}
	for stats.Iterations < q.opts.MaxIterations {
		stats.Iterations++

		cc.Reset()
		for _, o := range obs {
			ci := cc.Nearest(o)
			cc[ci].Append(o)
		}

		prev := make([]clusters.Coordinates, k)
		for i := range cc {
			prev[i] = cc[i].Center
		}
		cc.Recenter()
		reseedEmpty(cc, obs)

		shift := 0.0
		for i := range cc {
			shift = math.Max(shift, math.Sqrt(prev[i].Distance(cc[i].Center)))
		}
		if shift < q.opts.Epsilon {
			stats.Converged = true
			break
		}
	}

	centers := make([]clusters.Coordinates, k)
	for i := range cc {
		centers[i] = cc[i].Center
	}
	return centers, stats
}

// seedPlusPlus picks k initial centers: the first uniformly, each next one
// with probability proportional to its squared distance from the nearest
// chosen center. When every observation already coincides with a center the
// draw falls back to uniform, which duplicates a center.
func seedPlusPlus(obs clusters.Observations, k int, rng *rand.Rand) []clusters.Coordinates {
	centers := make([]clusters.Coordinates, 0, k)
	first := obs[rng.IntN(len(obs))].Coordinates()
	centers = append(centers, append(clusters.Coordinates(nil), first...))

	dist := make([]float64, len(obs))
	for i, o := range obs {
		dist[i] = o.Distance(centers[0])
	}

	for len(centers) < k {
		total := 0.0
		for _, d := range dist {
			total += d
		}

		pick := 0
		if total == 0 {
			pick = rng.IntN(len(obs))
		} else {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					pick = i
					break
				}
				pick = i
			}
		}

		c := append(clusters.Coordinates(nil), obs[pick].Coordinates()...)
		centers = append(centers, c)
		for i, o := range obs {
			dist[i] = math.Min(dist[i], o.Distance(c))
		}
	}
	return centers
}

// reseedEmpty moves each empty cluster onto the observation farthest from its
// own center, so no center stays stranded. The choice is deterministic.
func reseedEmpty(cc clusters.Clusters, obs clusters.Observations) {
	for i := range cc {
		if len(cc[i].Observations) > 0 {
			continue
		}
		far, farDist := -1, 0.0
		for j, o := range obs {
			d := o.Distance(cc[cc.Nearest(o)].Center)
			if d > farDist {
				far, farDist = j, d
			}
		}
		if far < 0 {
			return
		}
		cc[i].Center = append(clusters.Coordinates(nil), obs[far].Coordinates()...)
	}
}

// partitionUnseeded runs muesli/kmeans on unit-scaled coordinates, the range
// its random initial centers are drawn from.
func partitionUnseeded(obs clusters.Observations, k int) ([]clusters.Coordinates, error) {
	scaled := make(clusters.Observations, len(obs))
	for i, o := range obs {
		c := o.Coordinates()
		scaled[i] = clusters.Coordinates{c[0] / 255, c[1] / 255, c[2] / 255}
	}

	cc, err := kmeans.New().Partition(scaled, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans partition: %w", err)
	}
	slog.Debug("unseeded kmeans partition", "clusters", len(cc), "samples", len(obs))

	centers := make([]clusters.Coordinates, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		centers = append(centers, clusters.Coordinates{c.Center[0] * 255, c.Center[1] * 255, c.Center[2] * 255})
	}
	return centers, nil
}

// settled reports whether one assign-and-recenter step leaves every center
// within eps of where it is. Centers that own no observation stay put.
func settled(obs clusters.Observations, centers []clusters.Coordinates, eps float64) bool {
	if len(centers) == 0 {
		return true
	}
	cc := make(clusters.Clusters, len(centers))
	for i, c := range centers {
		cc[i] = clusters.Cluster{Center: c}
	}
	for _, o := range obs {
		ci := cc.Nearest(o)
		cc[ci].Append(o)
	}
	cc.Recenter()

	for i := range cc {
		if math.Sqrt(centers[i].Distance(cc[i].Center)) >= eps {
			return false
		}
	}
	return true
}

func toRGB(c clusters.Coordinates) segment.RGB {
	if len(c) < 3 {
		return segment.RGB{}
	}
	ch := func(v float64) uint8 {
		return uint8(max(0, min(255, math.Round(v))))
	}
	return segment.RGB{R: ch(c[0]), G: ch(c[1]), B: ch(c[2])}
}
