// Package gmpe holds the ground-motion prediction equations and the
// immutable catalog they are selected from.
//
// Every model is a pure function of the event and one site. Models return
// peak ground acceleration in m/s² and tolerate NaN VS30 in their own way:
// HH1992 falls to its rock branch, GB2015 applies no site correction and
// Wang_2023 substitutes 180 m/s.
package gmpe

import (
	"errors"
	"fmt"
)

// Event carries the source parameters a model may use.
type Event struct {
	Ms      float64
	Mw      float64
	DepthKm float64
}

// Site carries the per-cell inputs a model may use. Distances are in km and
// already floored at 1 km.
type Site struct {
	Re   float64 // epicentral distance
	Rh   float64 // hypocentral distance
	Vs30 float64 // m/s, NaN when unknown
}

// Func predicts PGA in m/s².
type Func func(Event, Site) float64

// Model is a named ground-motion prediction equation.
type Model struct {
	Name        string
	Description string
	Eval        Func
	// Aliases are alternative names Select and Lookup accept.
	Aliases []string
}

var (
	ErrNoActiveModels = errors.New("no active ground-motion models")
	ErrDuplicateModel = errors.New("duplicate model name")
)

func (m Model) validate() error {
	if m.Name == "" {
		return errors.New("model name is required")
	}
	if m.Eval == nil {
		return fmt.Errorf("model %s has no evaluation function", m.Name)
	}
	return nil
}
