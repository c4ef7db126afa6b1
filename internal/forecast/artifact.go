package forecast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/features"
)

// artifactFormat is bumped whenever the envelope layout changes.
const artifactFormat = 1

// Metrics are the held-out scores stored alongside a model.
type Metrics struct {
	MAE          float64 `json:"mae"`
	RMSE         float64 `json:"rmse"`
	R2           float64 `json:"r2"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
}

type envelope struct {
	Format    int           `json:"format"`
	Kind      Kind          `json:"kind"`
	Features  []string      `json:"features"`
	TrainedAt time.Time     `json:"trained_at"`
	Metrics   Metrics       `json:"metrics"`
	Linear    *LinearModel  `json:"linear,omitempty"`
	Forest    *RandomForest `json:"forest,omitempty"`
}

// Encode serialises a trained model into a self-describing artifact.
func Encode(m Model, metrics Metrics, trainedAt time.Time) ([]byte, error) {
	env := envelope{
		Format:    artifactFormat,
		Kind:      m.Kind(),
		Features:  features.Names,
		TrainedAt: trainedAt.UTC(),
		Metrics:   metrics,
	}

	switch v := m.(type) {
	case *LinearModel:
		env.Linear = v
	case *RandomForest:
		env.Forest = v
	case NaiveMean:
	default:
		return nil, fmt.Errorf("encode artifact: unsupported model %T", m)
	}

	return json.Marshal(env)
}

// Decode restores a model and its metrics from an artifact.
func Decode(blob []byte) (Model, Metrics, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, Metrics{}, fmt.Errorf("decode artifact: %w", err)
	}
	if env.Format != artifactFormat {
		return nil, Metrics{}, fmt.Errorf("decode artifact: unsupported format %d", env.Format)
	}
	if len(env.Features) != len(features.Names) {
		return nil, Metrics{}, fmt.Errorf("decode artifact: trained on %d features, have %d", len(env.Features), len(features.Names))
	}
	for i, name := range env.Features {
		if name != features.Names[i] {
			return nil, Metrics{}, fmt.Errorf("decode artifact: feature %d is %q, want %q", i, name, features.Names[i])
		}
	}

	switch env.Kind {
	case KindLinear:
		if env.Linear == nil {
			return nil, Metrics{}, fmt.Errorf("decode artifact: missing linear parameters")
		}
		return env.Linear, env.Metrics, nil
	case KindRandomForest:
		if env.Forest == nil {
			return nil, Metrics{}, fmt.Errorf("decode artifact: missing forest parameters")
		}
		return env.Forest, env.Metrics, nil
	case KindNaiveMean:
		return NaiveMean{}, env.Metrics, nil
	default:
		return nil, Metrics{}, fmt.Errorf("decode artifact: unknown model kind %q", env.Kind)
	}
}
