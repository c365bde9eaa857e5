package grid

// Grid is the analysis grid: its metric georeferencing, the resampled site
// values and the geographic coordinates of every cell centre. All slices are
// row-major with Width*Height elements. A Grid is shared read-only once
// built; callers must not modify its slices.
type Grid struct {
	Width     int
	Height    int
	Transform Affine
	CRS       string

	// Site holds VS30 in m/s. NaN marks cells without site information.
	Site []float64
	Lon  []float64
	Lat  []float64
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return g.Width * g.Height
}

// Index returns the row-major index of cell (row, col).
func (g *Grid) Index(row, col int) int {
	return row*g.Width + col
}

// CellCenter returns the metric coordinates of the centre of cell (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	return g.Transform.Apply(float64(col)+0.5, float64(row)+0.5)
}
