// Package domain models earthquake reports and the products derived from a
// ground-motion estimate.
//
// # Reports
//
// Reports arrive as flat JSON on the source topic, one per event:
//
//	{"id": "...", "name": "Lushan", "date": "20042013",
//	 "lon": 102.99, "lat": 30.31, "depth_km": 13, "radius_km": 150,
//	 "ms": 7.0, "models": ["GB2015", "Wang_2023"]}
//
// At least one of ms or mw is required. When only one is given the other is
// derived with the period-dependent Ms/Mw regressions, which need the event
// date in DDMMYYYY form ('/' and '-' separators are ignored). Dates outside
// every calibrated period use the most recent one.
//
// # Intensity
//
// PGA (m/s²) converts to a continuous intensity I = 1.5·ln(PGA) + 8 with PGA
// floored at 1e-6, and to eight discrete levels:
//
//	level  PGA range (m/s²)
//	0      < 0.457
//	1      0.457 – 0.936
//	2      0.936 – 1.94
//	3      1.94 – 4.01
//	4      4.01 – 8.30
//	5      8.30 – 17.2
//	6      17.2 – 35.5
//	7      > 35.5
//
// The lower edge of level 1 is inclusive; every other edge belongs to the
// lower level.
package domain
