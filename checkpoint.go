package sentiment

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Checkpoint is the persisted snapshot of a model: every learned
// parameter keyed by name, plus the configuration and selection score
// needed to validate a restore.
type Checkpoint struct {
	Epoch   int
	MacroF1 float64
	Config  ModelConfig
	Params  map[string]SerializedMat
}

// SerializedMat is the gob form of a parameter matrix. Gradients are
// transient state and are not persisted.
type SerializedMat struct {
	Rows int
	Cols int
	W    []float64
}

// SaveCheckpoint writes the model's full parameter state atomically:
// the snapshot goes to a temporary file first and is renamed into place,
// so a crash mid-write never corrupts the previous best checkpoint.
func SaveCheckpoint(path string, epoch int, macroF1 float64, model *GraphEnhancedModel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating checkpoint directory")
	}

	ckpt := Checkpoint{
		Epoch:   epoch,
		MacroF1: macroF1,
		Config:  model.Config(),
		Params:  make(map[string]SerializedMat),
	}
	for name, p := range model.Params() {
		w := make([]float64, len(p.W))
		copy(w, p.W)
		ckpt.Params[name] = SerializedMat{Rows: p.Rows, Cols: p.Cols, W: w}
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "creating checkpoint file")
	}
	if err := gob.NewEncoder(file).Encode(ckpt); err != nil {
		file.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "encoding checkpoint")
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "closing checkpoint file")
	}
	return errors.Wrap(os.Rename(tmp, path), "renaming checkpoint into place")
}

// PeekCheckpoint decodes a checkpoint without a model to restore into,
// exposing the configuration it was trained with.
func PeekCheckpoint(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening checkpoint")
	}
	defer file.Close()

	var ckpt Checkpoint
	if err := gob.NewDecoder(file).Decode(&ckpt); err != nil {
		return nil, errors.Wrap(err, "decoding checkpoint")
	}
	return &ckpt, nil
}

// LoadCheckpoint restores a saved parameter state into the model in
// place. Every parameter in the model must be present in the snapshot
// with a matching shape.
func LoadCheckpoint(path string, model *GraphEnhancedModel) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening checkpoint")
	}
	defer file.Close()

	var ckpt Checkpoint
	if err := gob.NewDecoder(file).Decode(&ckpt); err != nil {
		return nil, errors.Wrap(err, "decoding checkpoint")
	}

	for name, p := range model.Params() {
		saved, ok := ckpt.Params[name]
		if !ok {
			return nil, errors.Errorf("checkpoint is missing parameter %q", name)
		}
		if saved.Rows != p.Rows || saved.Cols != p.Cols {
			return nil, errors.Errorf("parameter %q has shape %dx%d in checkpoint, model expects %dx%d",
				name, saved.Rows, saved.Cols, p.Rows, p.Cols)
		}
		copy(p.W, saved.W)
		p.ZeroGrad()
	}
	return &ckpt, nil
}
