package gmpe

import "math"

// Builtin returns the built-in models in their canonical order.
func Builtin() []Model {
	return []Model{
		{Name: "HH1992", Description: "Huo & Hu (1992), hypocentral distance, soil/rock by VS30 760 m/s", Eval: HH1992, Aliases: []string{"HH_1992"}},
		{Name: "Si1999", Description: "Si & Midorikawa (1999), epicentral distance and depth", Eval: Si1999, Aliases: []string{"Si_1999"}},
		{Name: "GB2015", Description: "GB 18306-2015 attenuation with site-class correction", Eval: GB2015, Aliases: []string{"GB_2015"}},
		{Name: "Zhou_2019", Description: "Zhou et al. (2019), epicentral distance", Eval: Zhou2019},
		{Name: "Wang_2023", Description: "Wang et al. (2023), hypocentral distance with nonlinear site term", Eval: Wang2023},
	}
}

const cmPerG = 980.0

// HH1992 uses the soil branch for VS30 below 760 m/s and the rock branch
// otherwise, including unknown VS30.
func HH1992(ev Event, s Site) float64 {
	ms := ev.Ms
	near := math.Log10(s.Rh + 0.1818*math.Exp(0.7072*ms))
	var lg float64
	if s.Vs30 < 760 {
		lg = -1.164 + 1.203*ms - 0.044*ms*ms - 1.65*near
	} else {
		lg = -1.822 + 1.448*ms - 0.052*ms*ms - 2.018*near
	}
	return math.Pow(10, lg) / 100
}

func Si1999(ev Event, s Site) float64 {
	const c1, c2, c3, c4, c5 = 0.5, 0.0043, 0.0055, -0.003, 0.61
	mw := ev.Mw
	lg := c1*mw + c2*ev.DepthKm - math.Log10(s.Re+c3*math.Pow(10, 0.5*mw)) + c4*s.Re + c5
	return math.Pow(10, lg) / 100
}

var (
	gbSiteEdges = [...]float64{170, 260, 640, 1140, math.Inf(1)}
	gbPGABounds = [...]float64{0.05 * cmPerG, 0.10 * cmPerG, 0.15 * cmPerG, 0.20 * cmPerG, 0.30 * cmPerG, 0.40 * cmPerG}

	// Rows are site classes IV, III, II, I1, I0; columns are PGA bands.
	gbCorrection = [5][6]float64{
		{1.25, 1.20, 1.10, 1.00, 0.95, 0.90},
		{1.30, 1.25, 1.15, 1.00, 1.00, 1.00},
		{1.00, 1.00, 1.00, 1.00, 1.00, 1.00},
		{0.80, 0.82, 0.83, 0.85, 0.95, 1.00},
		{0.72, 0.74, 0.75, 0.76, 0.85, 0.90},
	}
)

const gbSiteClassII = 2

// GB2015 computes rock PGA from Ms with a break at 6.5 and scales it by the
// site-class amplification for its PGA band. Unknown VS30 is treated as
// site class II, which applies no correction.
func GB2015(ev Event, s Site) float64 {
	ms := ev.Ms
	c1, c2 := 0.561, 0.746
	if ms > 6.5 {
		c1, c2 = 2.501, 0.448
	}
	const c3, c4, c5 = -1.925, 0.956, 0.462

	pgaCm := math.Pow(10, c1+c2*ms+c3*math.Log10(s.Re+c4*math.Exp(c5*ms)))

	site := gbSiteClassII
	if !math.IsNaN(s.Vs30) {
		site = min(searchRight(gbSiteEdges[:], s.Vs30), len(gbCorrection)-1)
	}
	band := min(searchRight(gbPGABounds[:], pgaCm), len(gbPGABounds)-1)

	return pgaCm * gbCorrection[site][band] / 100
}

// searchRight returns the number of edges less than or equal to v.
func searchRight(edges []float64, v float64) int {
	i := 0
	for i < len(edges) && edges[i] <= v {
		i++
	}
	return i
}

func Zhou2019(ev Event, s Site) float64 {
	const (
		c1, c2, c3, c4 = -1.26102, 1.2030, -0.044, -1.65
		c5, c6, c7, c8 = 0.1818, 0.7072, -9.82429e-6, 0.0050472
	)
	mw, re := ev.Mw, s.Re
	lg := c1 + c2*mw + c3*mw*mw + c4*math.Log10(re+c5*math.Exp(c6*mw)) + c7*re*re + c8*re
	return math.Pow(10, lg) / 100
}

// Wang2023 substitutes 180 m/s for unknown VS30.
func Wang2023(ev Event, s Site) float64 {
	const (
		c1, c2, c3, c4, c5 = 8.8987, -0.8896, -0.2112, -3.0899, 0.2673
		c6, c7, c8, c9, c10 = 10.3706, -0.568, -0.172, -0.0067, 0.1
	)
	vs30 := s.Vs30
	if math.IsNaN(vs30) {
		vs30 = 180
	}
	mw := ev.Mw

	lnRock := c1 + c2*mw + c3*(8.5-mw)*(8.5-mw) + (c4+c5*mw)*math.Log(math.Hypot(s.Rh, c6))
	rock := math.Exp(lnRock)
	lnY := lnRock + c7*math.Log(vs30/760) + c8*math.Exp(c9*(vs30-360))*math.Log((rock+c10)/c10)
	return math.Exp(lnY) * cmPerG / 100
}
