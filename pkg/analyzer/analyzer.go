package analyzer

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

// Distribution summarises a sample of values
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary describes the annotations of a split
type Summary struct {
	Images        int          `json:"images"`
	Boxes         int          `json:"boxes"`
	EmptyImages   int          `json:"empty_images"`
	BoxesPerImage Distribution `json:"boxes_per_image"`
	BoxWidth      Distribution `json:"box_width"`
	BoxHeight     Distribution `json:"box_height"`
	ClassCounts   map[int]int  `json:"class_counts"`
}

// ClassCount pairs a class with the number of boxes carrying it
type ClassCount struct {
	Class int
	Count int
}

// Summarize collects statistics over records
func Summarize(records []types.ImageRecord) Summary {
	s := Summary{
		Images:      len(records),
		ClassCounts: map[int]int{},
	}

	perImage := make([]float64, 0, len(records))
	var widths, heights []float64
	for _, r := range records {
		perImage = append(perImage, float64(len(r.Boxes)))
		if len(r.Boxes) == 0 {
			s.EmptyImages++
		}
		for i, b := range r.Boxes {
			widths = append(widths, float64(b.W))
			heights = append(heights, float64(b.H))
			if i < len(r.Labels) {
				s.ClassCounts[r.Labels[i]]++
			}
		}
		s.Boxes += len(r.Boxes)
	}

	s.BoxesPerImage = describe(perImage)
	s.BoxWidth = describe(widths)
	s.BoxHeight = describe(heights)
	return s
}

// TopClasses returns the n most frequent classes, ties broken by class index
func (s Summary) TopClasses(n int) []ClassCount {
	out := make([]ClassCount, 0, len(s.ClassCounts))
	for class, count := range s.ClassCounts {
		out = append(out, ClassCount{Class: class, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Class < out[j].Class
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func describe(x []float64) Distribution {
	if len(x) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	d := Distribution{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	if len(x) > 1 {
		d.Mean, d.StdDev = stat.MeanStdDev(x, nil)
	} else {
		d.Mean = x[0]
	}
	return d
}
