package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arifnezami/sentiment"
)

// sidecarPath places a companion artifact next to the checkpoint file.
func sidecarPath(checkpoint, name string) string {
	return filepath.Join(filepath.Dir(checkpoint), name)
}

var log = logrus.New()

type trainFlags struct {
	dataPath     string
	checkpoint   string
	heatmapPath  string
	epochs       int
	batchSize    int
	maxLength    int
	hidden       int
	attnDim      int
	learningRate float64
	maxVocab     int
	stopwordLang string
	seed         int64
}

func main() {
	root := &cobra.Command{
		Use:   "senti",
		Short: "Graph-augmented sentiment classifier for code-mixed text",
	}
	root.AddCommand(newTrainCmd(), newEvaluateCmd())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newTrainCmd() *cobra.Command {
	flags := trainFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on a labeled CSV and evaluate the best checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(flags)
		},
	}
	cmd.Flags().StringVar(&flags.dataPath, "data", "", "labeled CSV with comment_text and label columns")
	cmd.Flags().StringVar(&flags.checkpoint, "checkpoint", "checkpoints/best.gob", "best-checkpoint path")
	cmd.Flags().StringVar(&flags.heatmapPath, "heatmap", "", "optional confusion-matrix image path")
	cmd.Flags().IntVar(&flags.epochs, "epochs", 10, "training epochs")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 16, "mini-batch size")
	cmd.Flags().IntVar(&flags.maxLength, "max-length", 48, "fixed token-sequence length")
	cmd.Flags().IntVar(&flags.hidden, "hidden", 64, "hidden dimension H")
	cmd.Flags().IntVar(&flags.attnDim, "attn-dim", 32, "attention projection dimension")
	cmd.Flags().Float64Var(&flags.learningRate, "lr", 0.001, "learning rate")
	cmd.Flags().IntVar(&flags.maxVocab, "max-vocab", 20000, "vocabulary cap")
	cmd.Flags().StringVar(&flags.stopwordLang, "stopword-lang", "", "ISO 639-1 code for stopword filtering during vocabulary fitting")
	cmd.Flags().Int64Var(&flags.seed, "seed", 42, "initialization and shuffle seed")
	cobra.CheckErr(cmd.MarkFlagRequired("data"))
	return cmd
}

func runTrain(flags trainFlags) error {
	records, err := sentiment.LoadRecords(flags.dataPath)
	if err != nil {
		return err
	}
	log.WithField("records", len(records)).Info("dataset loaded")

	corpus := make([]string, len(records))
	for i, r := range records {
		corpus[i] = sentiment.Normalize(r.Text)
	}

	tokOpts := []sentiment.TokenizerOpt{sentiment.UsingMaxVocab(flags.maxVocab)}
	if flags.stopwordLang != "" {
		tokOpts = append(tokOpts, sentiment.UsingStopwordFilter(flags.stopwordLang))
	}
	tok := sentiment.NewWordTokenizer(corpus, flags.maxLength, tokOpts...)
	labels := sentiment.NewLabelEncoder(records)
	analyzer := sentiment.NewLanguageSwitchAnalyzer()

	samples, err := sentiment.PrepareSamples(records, tok, labels, analyzer)
	if err != nil {
		return err
	}
	train, val, test := sentiment.Split(samples, 0.8, 0.1, flags.seed)
	log.WithFields(logrus.Fields{
		"train": len(train), "val": len(val), "test": len(test),
		"vocab": tok.VocabSize(), "classes": labels.NumClasses(),
	}).Info("dataset prepared")

	cfg := sentiment.ModelConfig{
		VocabSize:  tok.VocabSize(),
		NumClasses: labels.NumClasses(),
		MaxLength:  flags.maxLength,
		Hidden:     flags.hidden,
		AttnDim:    flags.attnDim,
		Seed:       flags.seed,
	}
	model, err := sentiment.NewGraphEnhancedModel(cfg)
	if err != nil {
		return err
	}

	trainCfg := sentiment.DefaultTrainingConfig()
	trainCfg.Epochs = flags.epochs
	trainCfg.BatchSize = flags.batchSize
	trainCfg.LearningRate = flags.learningRate
	trainCfg.CheckpointPath = flags.checkpoint
	trainCfg.ShuffleSeed = flags.seed
	trainCfg.Logger = log

	// The tokenizer and label encoder are part of the deployable
	// artifact; evaluate loads them back instead of refitting.
	if err := os.MkdirAll(filepath.Dir(flags.checkpoint), 0o755); err != nil {
		return err
	}
	if err := tok.Save(sidecarPath(flags.checkpoint, "tokenizer.gob")); err != nil {
		return err
	}
	if err := labels.Save(sidecarPath(flags.checkpoint, "labels.gob")); err != nil {
		return err
	}

	trainer := sentiment.NewTrainer(trainCfg)
	metrics, report, err := trainer.Run(model, train, val, test)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"best_f1":    metrics.BestMacroF1,
		"best_epoch": metrics.BestEpoch,
		"duration":   metrics.TrainingTime,
	}).Info("training finished")
	fmt.Print(report.Format(labels.Classes()))

	if flags.heatmapPath != "" {
		if err := report.SaveConfusionHeatmap(flags.heatmapPath); err != nil {
			return err
		}
		log.WithField("path", flags.heatmapPath).Info("confusion heatmap written")
	}
	return nil
}

func newEvaluateCmd() *cobra.Command {
	var dataPath, checkpoint string
	var batchSize int
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a saved checkpoint on a labeled CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(dataPath, checkpoint, batchSize)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "labeled CSV with comment_text and label columns")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "checkpoints/best.gob", "checkpoint to evaluate")
	cmd.Flags().IntVar(&batchSize, "batch-size", 16, "mini-batch size")
	cobra.CheckErr(cmd.MarkFlagRequired("data"))
	return cmd
}

func runEvaluate(dataPath, checkpoint string, batchSize int) error {
	records, err := sentiment.LoadRecords(dataPath)
	if err != nil {
		return err
	}

	peek, err := sentiment.PeekCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	cfg := peek.Config

	tok, err := sentiment.LoadWordTokenizer(sidecarPath(checkpoint, "tokenizer.gob"))
	if err != nil {
		return err
	}
	labels, err := sentiment.LoadLabelEncoder(sidecarPath(checkpoint, "labels.gob"))
	if err != nil {
		return err
	}
	if labels.NumClasses() != cfg.NumClasses {
		return fmt.Errorf("label encoder has %d classes, checkpoint was trained with %d", labels.NumClasses(), cfg.NumClasses)
	}

	samples, err := sentiment.PrepareSamples(records, tok, labels, sentiment.NewLanguageSwitchAnalyzer())
	if err != nil {
		return err
	}

	model, err := sentiment.NewGraphEnhancedModel(cfg)
	if err != nil {
		return err
	}
	if _, err := sentiment.LoadCheckpoint(checkpoint, model); err != nil {
		return err
	}

	trainCfg := sentiment.DefaultTrainingConfig()
	trainCfg.BatchSize = batchSize
	result, err := sentiment.NewTrainer(trainCfg).Evaluate(model, samples)
	if err != nil {
		return err
	}
	report := sentiment.BuildReport(result, cfg.NumClasses)
	fmt.Print(report.Format(labels.Classes()))
	return nil
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
