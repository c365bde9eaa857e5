package artifacts

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
)

const weightsHeader = "# GMPE Weights"

// WriteWeights writes the weights file: a header line, then one
// "model<TAB>weight" line per model with six decimals. Excluded models carry -1.
func WriteWeights(w io.Writer, weights []domain.ModelWeight) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, weightsHeader); err != nil {
		return err
	}
	for _, mw := range weights {
		if _, err := fmt.Fprintf(bw, "%s\t%.6f\n", mw.Model, mw.Weight); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadWeights parses a weights file. Blank lines and lines starting with '#'
// are skipped.
func ReadWeights(r io.Reader) ([]domain.ModelWeight, error) {
	var out []domain.ModelWeight
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		model, value, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected model<TAB>weight, got %q", line, text)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, domain.ModelWeight{Model: strings.TrimSpace(model), Weight: w})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
