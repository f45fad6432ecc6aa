package sentiment

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TrainingConfig contains configuration for model training.
type TrainingConfig struct {
	Epochs           int
	BatchSize        int
	LearningRate     float64
	ClipNorm         float64
	CheckpointPath   string
	ShuffleSeed      int64
	Context          context.Context
	Logger           *logrus.Logger
	ProgressCallback func(epoch int, trainLoss, valLoss, valAccuracy, valMacroF1 float64)
}

// DefaultTrainingConfig returns a default training configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Epochs:         10,
		BatchSize:      16,
		LearningRate:   0.001,
		ClipNorm:       5.0,
		CheckpointPath: "checkpoints/best.gob",
		ShuffleSeed:    1,
		Context:        context.Background(),
	}
}

// TrainingMetrics summarizes a completed run.
type TrainingMetrics struct {
	EpochsCompleted int
	FinalTrainLoss  float64
	BestMacroF1     float64
	BestEpoch       int
	TrainingTime    time.Duration
}

// EvalResult holds the outcome of one gradient-free pass over a
// dataset.
type EvalResult struct {
	Loss       float64
	Accuracy   float64
	MacroF1    float64
	Predicted  []int
	TrueLabels []int
}

// bestTracker implements the strict-improvement checkpoint policy: a
// snapshot is taken only when the score strictly exceeds the best seen
// so far, which starts at zero. Ties never trigger a save.
type bestTracker struct {
	best float64
}

func (b *bestTracker) improved(score float64) bool {
	if score > b.best {
		b.best = score
		return true
	}
	return false
}

// Trainer coordinates the epoch loop: shuffled gradient-enabled train
// phase, fixed-order gradient-free validation phase, macro-F1
// checkpoint selection, and the final test evaluation on the restored
// best parameters.
type Trainer struct {
	config TrainingConfig
	solver *AdamSolver
	best   bestTracker
}

// NewTrainer creates a trainer with the given configuration.
func NewTrainer(config TrainingConfig) *Trainer {
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	solver := NewAdamSolver(config.LearningRate)
	solver.ClipNorm = config.ClipNorm
	return &Trainer{config: config, solver: solver}
}

// Run trains the model for the configured number of epochs, then
// restores the best checkpoint and evaluates it on the test set. There
// is no early stopping and no learning-rate scheduling; the loop always
// completes all epochs unless the context is cancelled.
func (t *Trainer) Run(model *GraphEnhancedModel, train, val, test []Sample) (TrainingMetrics, *EvalReport, error) {
	start := time.Now()
	var metrics TrainingMetrics

	if len(train) == 0 {
		return metrics, nil, errors.New("training set is empty")
	}
	if len(val) == 0 {
		return metrics, nil, errors.New("validation set is empty")
	}

	shuffled := make([]Sample, len(train))
	copy(shuffled, train)
	rng := rand.New(rand.NewSource(t.config.ShuffleSeed))

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		select {
		case <-t.config.Context.Done():
			return metrics, nil, t.config.Context.Err()
		default:
		}

		// Batch composition is re-randomized each training epoch;
		// validation and test order stays fixed.
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		trainLoss := 0.0
		batches := Batches(shuffled, t.config.BatchSize)
		for _, batch := range batches {
			loss, err := t.trainStep(model, batch)
			if err != nil {
				return metrics, nil, errors.Wrapf(err, "epoch %d", epoch)
			}
			trainLoss += loss
		}
		trainLoss /= float64(len(batches))

		valResult, err := t.Evaluate(model, val)
		if err != nil {
			return metrics, nil, errors.Wrapf(err, "validating epoch %d", epoch)
		}

		if t.best.improved(valResult.MacroF1) {
			if err := SaveCheckpoint(t.config.CheckpointPath, epoch, valResult.MacroF1, model); err != nil {
				return metrics, nil, errors.Wrapf(err, "checkpointing epoch %d", epoch)
			}
			metrics.BestMacroF1 = valResult.MacroF1
			metrics.BestEpoch = epoch
		}

		metrics.EpochsCompleted = epoch
		metrics.FinalTrainLoss = trainLoss

		t.config.Logger.WithFields(logrus.Fields{
			"epoch":      epoch,
			"train_loss": trainLoss,
			"val_loss":   valResult.Loss,
			"val_acc":    valResult.Accuracy,
			"val_f1":     valResult.MacroF1,
			"best_f1":    t.best.best,
		}).Info("epoch complete")

		if t.config.ProgressCallback != nil {
			t.config.ProgressCallback(epoch, trainLoss, valResult.Loss, valResult.Accuracy, valResult.MacroF1)
		}
	}
	metrics.TrainingTime = time.Since(start)

	// The test phase runs on the best validation parameters, not the
	// last epoch's. A missing or unreadable checkpoint is fatal.
	if _, err := LoadCheckpoint(t.config.CheckpointPath, model); err != nil {
		return metrics, nil, errors.Wrap(err, "restoring best checkpoint for test evaluation")
	}

	testResult, err := t.Evaluate(model, test)
	if err != nil {
		return metrics, nil, errors.Wrap(err, "evaluating test set")
	}
	report := BuildReport(testResult, model.Config().NumClasses)
	return metrics, report, nil
}

// trainStep runs one forward/backward/update cycle over a batch and
// returns the combined loss.
func (t *Trainer) trainStep(model *GraphEnhancedModel, batch []Sample) (float64, error) {
	tape := NewTape(true)
	logits, aux, err := model.Forward(tape, batch)
	if err != nil {
		return 0, err
	}
	loss := applyTaskLosses(logits, aux, batch, true)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, errors.Errorf("non-finite training loss %v", loss)
	}
	tape.Backward()
	t.solver.Step(model.Params())
	return loss, nil
}

// Evaluate runs a gradient-free pass and aggregates loss, accuracy, and
// macro-F1 over the whole dataset.
func (t *Trainer) Evaluate(model *GraphEnhancedModel, samples []Sample) (EvalResult, error) {
	var result EvalResult
	if len(samples) == 0 {
		return result, errors.New("evaluation set is empty")
	}

	batches := Batches(samples, t.config.BatchSize)
	for _, batch := range batches {
		tape := NewTape(false)
		logits, aux, err := model.Forward(tape, batch)
		if err != nil {
			return result, err
		}
		result.Loss += applyTaskLosses(logits, aux, batch, false)
		for i, s := range batch {
			result.Predicted = append(result.Predicted, argmax(logits.Row(i)))
			result.TrueLabels = append(result.TrueLabels, s.Label)
		}
	}
	result.Loss /= float64(len(batches))
	result.Accuracy = Accuracy(result.TrueLabels, result.Predicted)
	result.MacroF1 = MacroF1(result.TrueLabels, result.Predicted, model.Config().NumClasses)
	return result, nil
}

// applyTaskLosses computes the combined objective over a batch: mean
// cross-entropy on the class scores plus mean squared error on the
// switch-count prediction, summed with equal weight. With withGrads set
// it also writes the loss gradients onto the logits and auxiliary
// outputs for the subsequent backward pass.
func applyTaskLosses(logits, aux *Mat, batch []Sample, withGrads bool) float64 {
	n := float64(len(batch))
	ceLoss, mseLoss := 0.0, 0.0

	for i, s := range batch {
		probs := softmaxRow(logits.Row(i))
		ceLoss += -math.Log(math.Max(probs[s.Label], 1e-12))
		if withGrads {
			grad := logits.RowGrad(i)
			for c, p := range probs {
				grad[c] = p / n
			}
			grad[s.Label] -= 1 / n
		}

		diff := aux.W[i] - s.Switches
		mseLoss += diff * diff
		if withGrads {
			aux.Dw[i] = 2 * diff / n
		}
	}
	return ceLoss/n + mseLoss/n
}

func softmaxRow(row []float64) []float64 {
	maxVal := math.Inf(-1)
	for _, v := range row {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
