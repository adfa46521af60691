// Package lookup implements piecewise-linear performance curves with clamped
// extrapolation.
package lookup

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/kilianp07/usdplan/core/model"
)

const exactMatchEpsilon = 1e-9

// Clamp tells whether a query fell outside the curve's x range.
type Clamp string

const (
	ClampNone Clamp = ""
	ClampMin  Clamp = "min"
	ClampMax  Clamp = "max"
)

// EmptyCurveError is returned when a curve without points is queried.
type EmptyCurveError struct {
	Curve string
}

func (e *EmptyCurveError) Error() string {
	return fmt.Sprintf("lookup curve %q has no points", e.Curve)
}

// Point is one row of a curve.
type Point struct {
	X float64
	Y []float64
}

// Sample is the answer to a curve query.
type Sample struct {
	X            float64
	Y            []float64
	Clamped      Clamp
	Interpolated bool
}

// Curve is an ascending, unique-x table of rows with a fixed column count.
type Curve struct {
	name    string
	columns []string
	xs      []float64
	ys      [][]float64 // ys[col][row]
	fits    []interp.PiecewiseLinear
}

// NewCurve sorts the points by x and prepares one linear fit per column.
func NewCurve(name string, columns []string, points []Point) (*Curve, error) {
	pts := append([]Point(nil), points...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	c := &Curve{
		name:    name,
		columns: append([]string(nil), columns...),
		xs:      make([]float64, len(pts)),
		ys:      make([][]float64, len(columns)),
	}
	for col := range c.ys {
		c.ys[col] = make([]float64, len(pts))
	}
	for i, p := range pts {
		if len(p.Y) != len(columns) {
			return nil, &model.ConfigurationError{
				Field:  "curve." + name,
				Reason: fmt.Sprintf("row %d has %d values, want %d", i, len(p.Y), len(columns)),
			}
		}
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
			return nil, &model.ConfigurationError{Field: "curve." + name, Reason: "x must be finite"}
		}
		if i > 0 && p.X-pts[i-1].X < exactMatchEpsilon {
			return nil, &model.ConfigurationError{
				Field:  "curve." + name,
				Reason: fmt.Sprintf("duplicate x %g", p.X),
			}
		}
		c.xs[i] = p.X
		for col, v := range p.Y {
			c.ys[col][i] = v
		}
	}
	if len(pts) >= 2 {
		c.fits = make([]interp.PiecewiseLinear, len(columns))
		for col := range columns {
			if err := c.fits[col].Fit(c.xs, c.ys[col]); err != nil {
				return nil, fmt.Errorf("fit curve %s column %s: %w", name, columns[col], err)
			}
		}
	}
	return c, nil
}

// Name returns the curve name.
func (c *Curve) Name() string { return c.name }

// Len returns the number of rows.
func (c *Curve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.xs)
}

// Columns returns the column names in row order.
func (c *Curve) Columns() []string { return append([]string(nil), c.columns...) }

// Bounds returns the smallest and largest x.
func (c *Curve) Bounds() (lo, hi float64, err error) {
	if c.Len() == 0 {
		return 0, 0, &EmptyCurveError{Curve: c.nameOrEmpty()}
	}
	return c.xs[0], c.xs[len(c.xs)-1], nil
}

// Interpolate evaluates every column at x. Queries at or beyond either end
// return the boundary row and report which side was clamped.
func (c *Curve) Interpolate(x float64) (Sample, error) {
	n := c.Len()
	if n == 0 {
		return Sample{}, &EmptyCurveError{Curve: c.nameOrEmpty()}
	}
	switch {
	case x <= c.xs[0]:
		return Sample{X: c.xs[0], Y: c.row(0), Clamped: ClampMin}, nil
	case x >= c.xs[n-1]:
		return Sample{X: c.xs[n-1], Y: c.row(n - 1), Clamped: ClampMax}, nil
	}

	i := sort.SearchFloat64s(c.xs, x)
	if i < n && math.Abs(c.xs[i]-x) < exactMatchEpsilon {
		return Sample{X: x, Y: c.row(i)}, nil
	}
	if i > 0 && math.Abs(c.xs[i-1]-x) < exactMatchEpsilon {
		return Sample{X: x, Y: c.row(i - 1)}, nil
	}

	y := make([]float64, len(c.fits))
	for col := range c.fits {
		y[col] = c.fits[col].Predict(x)
	}
	return Sample{X: x, Y: y, Interpolated: true}, nil
}

func (c *Curve) row(i int) []float64 {
	out := make([]float64, len(c.ys))
	for col := range c.ys {
		out[col] = c.ys[col][i]
	}
	return out
}

func (c *Curve) nameOrEmpty() string {
	if c == nil {
		return ""
	}
	return c.name
}
