package sentiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleReport() *EvalReport {
	result := EvalResult{
		Accuracy:   0.75,
		MacroF1:    0.7,
		TrueLabels: []int{0, 0, 1, 1},
		Predicted:  []int{0, 1, 1, 1},
	}
	return BuildReport(result, 2)
}

func TestReportFormat(t *testing.T) {
	out := sampleReport().Format([]string{"negative", "positive"})

	for _, want := range []string{"negative", "positive", "precision", "accuracy: 0.7500", "macro-F1: 0.7000"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted report missing %q:\n%s", want, out)
		}
	}
}

func TestReportConfusion(t *testing.T) {
	report := sampleReport()
	expected := [][]int{{1, 1}, {0, 2}}
	for r := range expected {
		for c := range expected[r] {
			if report.Confusion[r][c] != expected[r][c] {
				t.Errorf("confusion[%d][%d] = %d, want %d", r, c, report.Confusion[r][c], expected[r][c])
			}
		}
	}
}

func TestSaveConfusionHeatmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confusion.png")
	if err := sampleReport().SaveConfusionHeatmap(path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("heatmap file is empty")
	}
}
