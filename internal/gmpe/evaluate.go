package gmpe

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Prediction is one model's PGA (m/s²) for every site, in site order.
type Prediction struct {
	Model string
	PGA   []float64
}

// cancelCheckInterval is how many sites are evaluated between context checks.
const cancelCheckInterval = 4096

// Evaluate runs every model over all sites concurrently. Results are returned
// in model order regardless of completion order.
func Evaluate(ctx context.Context, models []Model, ev Event, sites []Site) ([]Prediction, error) {
	if len(models) == 0 {
		return nil, ErrNoActiveModels
	}

	preds := make([]Prediction, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		g.Go(func() error {
			pga := make([]float64, len(sites))
			for j, s := range sites {
				if j%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				pga[j] = m.Eval(ev, s)
			}
			preds[i] = Prediction{Model: m.Name, PGA: pga}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

// Names returns the model names of preds in order.
func Names(preds []Prediction) []string {
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Model
	}
	return names
}
