package forecast

import (
	"context"
	"time"

	"github.com/yourusername/skycast/internal/models"
)

// limitations is the static disclosure attached to every explanation.
var limitations = []string{
	"accuracy degrades quickly beyond short-term horizons",
	"lag and rolling features are approximated from current conditions for future hours",
	"no microclimate or terrain modeling",
	"confidence intervals reflect inter-model agreement, not calibrated uncertainty",
	"pattern labels come from a fixed rule table, not the models",
}

// Explanation describes the active prediction setup for a location.
type Explanation struct {
	Location    string                          `json:"location"`
	Algorithms  []string                        `json:"algorithms"`
	Weights     models.EnsembleWeights          `json:"weights"`
	Schema      []string                        `json:"feature_schema"`
	Metrics     map[string]*models.ModelMetrics `json:"metrics"`
	TrainedAt   time.Time                       `json:"trained_at"`
	Limitations []string                        `json:"limitations"`
}

// GetPredictionExplanation reports the active algorithms, their weights and
// feature schemas, the most recent accuracy metrics, and the documented
// limitations of the approach.
func (l *IntegrationLayer) GetPredictionExplanation(ctx context.Context, location models.Location) (*Explanation, error) {
	pred := l.orchestrator.Predictor()
	if !pred.Trained() {
		return nil, models.ErrModelNotTrained
	}

	weights, err := l.Weights(ctx)
	if err != nil {
		return nil, err
	}

	algorithms := pred.Algorithms()
	perAlgorithm := make(map[string]*models.ModelMetrics, len(algorithms))
	if last, err := l.history.LastSuccessful(ctx); err == nil {
		for _, name := range algorithms {
			perAlgorithm[name] = last.MetricsFor(name)
		}
	}

	return &Explanation{
		Location:    location.Key(),
		Algorithms:  algorithms,
		Weights:     weights,
		Schema:      pred.Schema(),
		Metrics:     perAlgorithm,
		TrainedAt:   pred.TrainedAt(),
		Limitations: limitations,
	}, nil
}
