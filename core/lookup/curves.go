package lookup

import (
	"errors"

	"github.com/kilianp07/usdplan/core/model"
)

// GTPerformance is the GT curve read at one load.
type GTPerformance struct {
	HeatRate        float64 `json:"heat_rate"`
	FreeSteamFactor float64 `json:"free_steam_factor"`
	Clamped         Clamp   `json:"clamped,omitempty"`
}

// GTCurve maps GT load (MW) to heat rate and free-steam factor.
type GTCurve struct{ c *Curve }

// NewGTCurve builds the GT curve from raw rows.
func NewGTCurve(points []model.GTCurvePoint) (*GTCurve, error) {
	pts := make([]Point, len(points))
	for i, p := range points {
		pts[i] = Point{X: p.LoadMW, Y: []float64{p.HeatRate, p.FreeSteamFactor}}
	}
	c, err := NewCurve("gt", []string{"heat_rate", "free_steam_factor"}, pts)
	if err != nil {
		return nil, err
	}
	return &GTCurve{c: c}, nil
}

// At reads the curve at loadMW. An empty curve yields zeros and an
// EmptyCurveError.
func (g *GTCurve) At(loadMW float64) (GTPerformance, error) {
	if g == nil {
		return GTPerformance{}, &EmptyCurveError{Curve: "gt"}
	}
	s, err := g.c.Interpolate(loadMW)
	if err != nil {
		return GTPerformance{}, err
	}
	return GTPerformance{HeatRate: s.Y[0], FreeSteamFactor: s.Y[1], Clamped: s.Clamped}, nil
}

// Len returns the number of curve rows.
func (g *GTCurve) Len() int {
	if g == nil {
		return 0
	}
	return g.c.Len()
}

// STGExtraction is the STG curve read at one load, flows in tph.
type STGExtraction struct {
	SHPInletTph        float64 `json:"shp_inlet_tph"`
	MPExtractionTph    float64 `json:"mp_extraction_tph"`
	LPExtractionTph    float64 `json:"lp_extraction_tph"`
	CondensingLoadM3Hr float64 `json:"condensing_load_m3hr"`
	HeatRateKcalKWh    float64 `json:"heat_rate_kcal_kwh"`
	Clamped            Clamp   `json:"clamped,omitempty"`
}

// STGCurve maps STG load (MW) to extraction and inlet flows.
type STGCurve struct{ c *Curve }

// NewSTGCurve builds the STG curve from raw rows.
func NewSTGCurve(points []model.STGCurvePoint) (*STGCurve, error) {
	pts := make([]Point, len(points))
	for i, p := range points {
		pts[i] = Point{X: p.LoadMW, Y: []float64{
			p.SHPInletTph, p.MPExtractionTph, p.LPExtractionTph, p.CondensingLoadM3Hr, p.HeatRateKcalKWh,
		}}
	}
	c, err := NewCurve("stg", []string{
		"shp_inlet_tph", "mp_extraction_tph", "lp_extraction_tph", "condensing_load_m3hr", "heat_rate_kcal_kwh",
	}, pts)
	if err != nil {
		return nil, err
	}
	return &STGCurve{c: c}, nil
}

// At reads the curve at loadMW. A non-positive load means the STG is not
// running and yields zero flows.
func (s *STGCurve) At(loadMW float64) (STGExtraction, error) {
	if s == nil {
		return STGExtraction{}, &EmptyCurveError{Curve: "stg"}
	}
	if loadMW <= 0 {
		return STGExtraction{}, nil
	}
	sm, err := s.c.Interpolate(loadMW)
	if err != nil {
		return STGExtraction{}, err
	}
	return STGExtraction{
		SHPInletTph:        sm.Y[0],
		MPExtractionTph:    sm.Y[1],
		LPExtractionTph:    sm.Y[2],
		CondensingLoadM3Hr: sm.Y[3],
		HeatRateKcalKWh:    sm.Y[4],
		Clamped:            sm.Clamped,
	}, nil
}

// Len returns the number of curve rows.
func (s *STGCurve) Len() int {
	if s == nil {
		return 0
	}
	return s.c.Len()
}

// HRSGCurves holds one heat-rate curve per HRSG id.
type HRSGCurves struct {
	byID map[string]*Curve
}

// NewHRSGCurves builds the per-HRSG heat-rate curves.
func NewHRSGCurves(raw map[string][]model.HRSGCurvePoint) (*HRSGCurves, error) {
	h := &HRSGCurves{byID: make(map[string]*Curve, len(raw))}
	for id, points := range raw {
		pts := make([]Point, len(points))
		for i, p := range points {
			pts[i] = Point{X: p.LoadTph, Y: []float64{p.HeatRateBTULb}}
		}
		c, err := NewCurve("hrsg."+id, []string{"heat_rate_btu_lb"}, pts)
		if err != nil {
			return nil, err
		}
		h.byID[id] = c
	}
	return h, nil
}

// HeatRate returns the heat rate (BTU/lb) of HRSG id at loadTph.
func (h *HRSGCurves) HeatRate(id string, loadTph float64) (float64, error) {
	if h == nil || h.byID[id] == nil {
		return 0, &EmptyCurveError{Curve: "hrsg." + id}
	}
	s, err := h.byID[id].Interpolate(loadTph)
	if err != nil {
		return 0, err
	}
	return s.Y[0], nil
}

// Set bundles every curve a planning run reads.
type Set struct {
	GT   *GTCurve
	STG  *STGCurve
	HRSG *HRSGCurves
}

// NewSet builds all curves of a snapshot. The GT curve is mandatory; the
// others fall back to norm-based calculations when empty.
func NewSet(raw model.CurveSet) (Set, error) {
	gt, err := NewGTCurve(raw.GT)
	if err != nil {
		return Set{}, err
	}
	if gt.Len() == 0 {
		return Set{}, &model.ConfigurationError{Field: "curves.gt", Reason: "GT performance curve is empty"}
	}
	stg, err := NewSTGCurve(raw.STG)
	if err != nil {
		return Set{}, err
	}
	hrsg, err := NewHRSGCurves(raw.HRSG)
	if err != nil {
		return Set{}, err
	}
	return Set{GT: gt, STG: stg, HRSG: hrsg}, nil
}

// IsEmpty reports whether err is an EmptyCurveError.
func IsEmpty(err error) bool {
	var e *EmptyCurveError
	return errors.As(err, &e)
}
