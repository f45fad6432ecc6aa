package sentiment

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// EvalReport is the read-only reporting view of a test evaluation:
// aggregate scores, per-class precision/recall/F1, and the confusion
// matrix. It consumes predicted and true labels and feeds nothing back
// into training.
type EvalReport struct {
	Accuracy  float64
	MacroF1   float64
	PerClass  []ClassMetrics
	Confusion [][]int
}

// BuildReport derives the full report from an evaluation result.
func BuildReport(result EvalResult, numClasses int) *EvalReport {
	confusion := ConfusionMatrix(result.TrueLabels, result.Predicted, numClasses)
	return &EvalReport{
		Accuracy:  result.Accuracy,
		MacroF1:   result.MacroF1,
		PerClass:  PerClassMetrics(confusion),
		Confusion: confusion,
	}
}

// Format renders the report as a classification-report table with the
// given class names.
func (r *EvalReport) Format(classes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %9s %9s %9s %9s\n", "class", "precision", "recall", "f1", "support")
	for i, m := range r.PerClass {
		name := fmt.Sprintf("class-%d", i)
		if i < len(classes) {
			name = classes[i]
		}
		fmt.Fprintf(&b, "%-16s %9.4f %9.4f %9.4f %9d\n", name, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "\naccuracy: %.4f  macro-F1: %.4f\n", r.Accuracy, r.MacroF1)
	return b.String()
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Rows are
// true classes, columns predicted classes; row 0 renders at the top.
type confusionGrid struct {
	m [][]int
}

func (g confusionGrid) Dims() (int, int) { return len(g.m), len(g.m) }
func (g confusionGrid) X(c int) float64  { return float64(c) }
func (g confusionGrid) Y(r int) float64  { return float64(r) }
func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.m[len(g.m)-1-r][c])
}

// SaveConfusionHeatmap renders the confusion matrix as a heatmap image
// (format chosen by the path extension).
func (r *EvalReport) SaveConfusionHeatmap(path string) error {
	if len(r.Confusion) == 0 {
		return errors.New("empty confusion matrix")
	}

	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "predicted"
	p.Y.Label.Text = "true"

	heatmap := plotter.NewHeatMap(confusionGrid{m: r.Confusion}, moreland.SmoothBlueRed().Palette(255))
	p.Add(heatmap)

	return errors.Wrap(p.Save(5*vg.Inch, 5*vg.Inch, path), "saving confusion heatmap")
}
