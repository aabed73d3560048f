package regressor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/skycast/internal/models"
)

// Evaluate computes holdout metrics from predictions against actuals.
func Evaluate(predicted, actual []float64) (models.ModelMetrics, error) {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return models.ModelMetrics{}, fmt.Errorf("evaluate: %d predictions for %d actuals", len(predicted), len(actual))
	}

	var absSum, sqSum float64
	for i := range predicted {
		diff := predicted[i] - actual[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}

	n := float64(len(predicted))
	mse := sqSum / n

	return models.ModelMetrics{
		MAE:  absSum / n,
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		R2:   RSquared(predicted, actual),
	}, nil
}

// RSquared is the fraction of target variance explained by the predictions.
// A constant target yields 0 rather than a division by zero.
func RSquared(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}

	meanActual := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i := range actual {
		res := actual[i] - predicted[i]
		tot := actual[i] - meanActual
		ssRes += res * res
		ssTot += tot * tot
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// CrossValidate computes the k-fold cross-validation score (mean R² across
// folds) on the given partition. Folds are contiguous chronological slices
// with no shuffling, so time order is preserved; each fold validates a model
// trained on the remaining rows. The caller passes the training partition
// only; the holdout must never leak in here.
func CrossValidate(factory func() Model, X [][]float64, y []float64, k int) (float64, error) {
	if k < 2 {
		return 0, fmt.Errorf("cross-validate: need at least 2 folds, got %d", k)
	}
	if len(X) < k {
		return 0, fmt.Errorf("cross-validate: %d rows cannot fill %d folds", len(X), k)
	}

	foldSize := len(X) / k
	scores := make([]float64, 0, k)

	for fold := 0; fold < k; fold++ {
		lo := fold * foldSize
		hi := lo + foldSize
		if fold == k-1 {
			hi = len(X)
		}

		trainX := make([][]float64, 0, len(X)-(hi-lo))
		trainY := make([]float64, 0, len(X)-(hi-lo))
		trainX = append(trainX, X[:lo]...)
		trainX = append(trainX, X[hi:]...)
		trainY = append(trainY, y[:lo]...)
		trainY = append(trainY, y[hi:]...)

		model := factory()
		if err := model.Fit(trainX, trainY); err != nil {
			return 0, fmt.Errorf("cross-validate: fold %d: %w", fold, err)
		}

		predicted := make([]float64, 0, hi-lo)
		actuals := make([]float64, 0, hi-lo)
		for i := lo; i < hi; i++ {
			p, err := model.Predict(X[i])
			if err != nil {
				return 0, fmt.Errorf("cross-validate: fold %d: %w", fold, err)
			}
			predicted = append(predicted, p)
			actuals = append(actuals, y[i])
		}
		scores = append(scores, RSquared(predicted, actuals))
	}

	return stat.Mean(scores, nil), nil
}

// SplitChronological produces a time-ordered train/holdout split with no
// shuffling: shuffling would leak future information into training.
func SplitChronological(X [][]float64, y []float64, holdoutFraction float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	cut := int(float64(len(X)) * (1 - holdoutFraction))
	if cut < 1 {
		cut = 1
	}
	if cut >= len(X) {
		cut = len(X) - 1
	}
	return X[:cut], y[:cut], X[cut:], y[cut:]
}
