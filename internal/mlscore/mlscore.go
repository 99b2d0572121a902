// Package mlscore implements an optional ML augmentation capability: a
// Predictor the Refresh cadence may consult alongside the deterministic
// scorer. Predictions are logged for comparison and never substituted
// for the deterministic score unless Config.Scoring.MLOverride opts in,
// keeping the daemon's primary ranking explainable by default.
package mlscore

import (
	"context"
	"log/slog"
)

// Prediction is one trader's ML-derived signal, kept deliberately narrow:
// a score in the same [0, 1] range as the deterministic composite, plus a
// model version tag for audit trails.
type Prediction struct {
	Trader       string
	Score        float64
	ModelVersion string
}

// Predictor is injected into the scheduler's Refresh cadence. The no-op
// implementation below ships by default; a real model-serving client
// would implement the same interface.
type Predictor interface {
	Predict(ctx context.Context, trader string) (Prediction, error)
}

// NoOp is the default Predictor: it returns no prediction and never
// errors, so wiring it in costs nothing until a real model is available.
type NoOp struct{}

// Predict always returns the zero Prediction with ModelVersion "noop".
func (NoOp) Predict(ctx context.Context, trader string) (Prediction, error) {
	return Prediction{Trader: trader, ModelVersion: "noop"}, nil
}

// LogPrediction records a prediction alongside the deterministic score for
// later comparison, without influencing ranking.
func LogPrediction(logger *slog.Logger, trader string, deterministic float64, pred Prediction) {
	if pred.ModelVersion == "noop" {
		return
	}
	logger.Info("ml prediction",
		"trader", trader,
		"deterministic_score", deterministic,
		"ml_score", pred.Score,
		"model_version", pred.ModelVersion,
	)
}
