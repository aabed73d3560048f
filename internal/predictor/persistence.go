package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/skycast/internal/features"
	"github.com/yourusername/skycast/internal/regressor"
	"github.com/yourusername/skycast/internal/repository"
)

const encoderArtifact = "encoder"

// scoresArtifact persists the holdout R² map so a reloaded snapshot reports
// the same accuracy estimate the live one did.
const scoresArtifact = "scores"

// Save persists the active snapshot: one artifact per algorithm, the encoder
// vocabulary, the score map, and a metadata record tying them together.
func (p *Predictor) Save(ctx context.Context) error {
	snap := p.active()
	if snap == nil || len(snap.models) == 0 {
		return fmt.Errorf("cannot save: no trained models")
	}

	algorithms := make([]string, 0, len(snap.models))
	for name, model := range snap.models {
		state, err := model.State()
		if err != nil {
			return fmt.Errorf("failed to serialize %s model: %w", name, err)
		}
		if err := p.store.SaveArtifact(ctx, p.artifactKey(name), state); err != nil {
			return err
		}
		algorithms = append(algorithms, name)
	}

	encoderBlob, err := json.Marshal(snap.builder.Encoder())
	if err != nil {
		return fmt.Errorf("failed to serialize condition encoder: %w", err)
	}
	if err := p.store.SaveArtifact(ctx, p.artifactKey(encoderArtifact), encoderBlob); err != nil {
		return err
	}

	scoresBlob, err := json.Marshal(snap.scores)
	if err != nil {
		return fmt.Errorf("failed to serialize scores: %w", err)
	}
	if err := p.store.SaveArtifact(ctx, p.artifactKey(scoresArtifact), scoresBlob); err != nil {
		return err
	}

	meta := &repository.ModelMetadata{
		Target:     p.target,
		Schema:     snap.schema,
		Algorithms: algorithms,
		TrainedAt:  snap.trainedAt,
	}
	if err := p.store.SaveMetadata(ctx, meta); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"target":     p.target,
		"algorithms": algorithms,
		"trained_at": snap.trainedAt,
	}).Info("Model snapshot saved")

	return nil
}

// Load rehydrates the most recently saved snapshot and swaps it in. The
// feature schema is restored in its original order; reordering it would
// silently invalidate every prediction.
func (p *Predictor) Load(ctx context.Context) error {
	meta, err := p.store.LoadMetadata(ctx)
	if err != nil {
		return err
	}
	if meta.Target != p.target {
		return fmt.Errorf("stored snapshot targets %q, want %q", meta.Target, p.target)
	}

	trained := make(map[string]regressor.Model, len(meta.Algorithms))
	for _, name := range meta.Algorithms {
		model, err := regressor.New(name, meta.Schema)
		if err != nil {
			return err
		}
		state, err := p.store.LoadArtifact(ctx, p.artifactKey(name))
		if err != nil {
			return err
		}
		if err := model.Restore(state); err != nil {
			return fmt.Errorf("failed to restore %s model: %w", name, err)
		}
		trained[name] = model
	}

	encoderBlob, err := p.store.LoadArtifact(ctx, p.artifactKey(encoderArtifact))
	if err != nil {
		return err
	}
	encoder := features.NewConditionEncoder()
	if err := json.Unmarshal(encoderBlob, encoder); err != nil {
		return fmt.Errorf("failed to restore condition encoder: %w", err)
	}

	scores := make(map[string]float64)
	if scoresBlob, err := p.store.LoadArtifact(ctx, p.artifactKey(scoresArtifact)); err == nil {
		if err := json.Unmarshal(scoresBlob, &scores); err != nil {
			return fmt.Errorf("failed to restore scores: %w", err)
		}
	}

	p.Swap(trained, meta.Schema, encoder, scores, meta.TrainedAt)

	p.log.WithFields(logrus.Fields{
		"target":     p.target,
		"algorithms": meta.Algorithms,
		"trained_at": meta.TrainedAt.Format(time.RFC3339),
	}).Info("Model snapshot loaded")

	return nil
}

func (p *Predictor) artifactKey(name string) string {
	return p.target + "/" + name
}
