package sentiment

import (
	"gonum.org/v1/gonum/stat"
)

// ClassMetrics holds per-class evaluation scores.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ConfusionMatrix counts predictions: rows are true classes, columns
// predicted classes.
func ConfusionMatrix(trueLabels, predLabels []int, numClasses int) [][]int {
	m := make([][]int, numClasses)
	for i := range m {
		m[i] = make([]int, numClasses)
	}
	for i, truth := range trueLabels {
		m[truth][predLabels[i]]++
	}
	return m
}

// Accuracy is the fraction of exact label matches.
func Accuracy(trueLabels, predLabels []int) float64 {
	if len(trueLabels) == 0 {
		return 0
	}
	correct := 0
	for i, truth := range trueLabels {
		if predLabels[i] == truth {
			correct++
		}
	}
	return float64(correct) / float64(len(trueLabels))
}

// PerClassMetrics computes precision, recall, and F1 for every class
// from a confusion matrix. Classes with no predictions or no support
// score 0 rather than NaN.
func PerClassMetrics(confusion [][]int) []ClassMetrics {
	metrics := make([]ClassMetrics, len(confusion))
	for c := range confusion {
		tp := confusion[c][c]
		support, predicted := 0, 0
		for other := range confusion {
			support += confusion[c][other]
			predicted += confusion[other][c]
		}

		var precision, recall, f1 float64
		if predicted > 0 {
			precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			recall = float64(tp) / float64(support)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		metrics[c] = ClassMetrics{Precision: precision, Recall: recall, F1: f1, Support: support}
	}
	return metrics
}

// MacroF1 is the unweighted mean of per-class F1 scores, the model
// selection criterion for checkpointing.
func MacroF1(trueLabels, predLabels []int, numClasses int) float64 {
	perClass := PerClassMetrics(ConfusionMatrix(trueLabels, predLabels, numClasses))
	scores := make([]float64, len(perClass))
	for i, m := range perClass {
		scores[i] = m.F1
	}
	return stat.Mean(scores, nil)
}
