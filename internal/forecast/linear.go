package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/restock-advisor/internal/features"
)

// ridge keeps the normal equations positive definite for constant or
// collinear features.
const ridge = 1e-6

// LinearModel is ordinary least squares over standardised features.
type LinearModel struct {
	Means     []float64 `json:"means"`
	Scales    []float64 `json:"scales"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *LinearModel) Kind() Kind { return KindLinear }

func (m *LinearModel) Predict(x []float64) float64 {
	pred := m.Intercept
	for j, c := range m.Coef {
		if j >= len(x) {
			break
		}
		pred += c * (x[j] - m.Means[j]) / m.Scales[j]
	}
	return pred
}

// LinearTrainer fits LinearModel.
type LinearTrainer struct{}

func (LinearTrainer) Kind() Kind { return KindLinear }

func (LinearTrainer) Fit(samples []features.Sample) (Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("linear regression: no samples")
	}

	x, y := columns(samples)
	p := len(x[0])
	n := float64(len(x))

	means := make([]float64, p)
	scales := make([]float64, p)
	col := make([]float64, len(x))
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := features.MeanStd(col)
		means[j] = mean
		if std == 0 {
			std = 1
		}
		scales[j] = std
	}

	yMean, _ := features.MeanStd(y)

	// Normal equations on the standardised design with centred target.
	xtx := make([][]float64, p)
	for j := range xtx {
		xtx[j] = make([]float64, p)
	}
	xty := make([]float64, p)
	z := make([]float64, p)
	for i := range x {
		for j := 0; j < p; j++ {
			z[j] = (x[i][j] - means[j]) / scales[j]
		}
		dy := y[i] - yMean
		for j := 0; j < p; j++ {
			xty[j] += z[j] * dy
			for k := 0; k <= j; k++ {
				xtx[j][k] += z[j] * z[k]
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			xtx[k][j] = xtx[j][k]
		}
		xtx[j][j] += ridge * n
	}

	coef, err := solveCholesky(xtx, xty)
	if err != nil {
		return nil, fmt.Errorf("linear regression: %w", err)
	}

	return &LinearModel{Means: means, Scales: scales, Coef: coef, Intercept: yMean}, nil
}

// solveCholesky solves a*x = b for symmetric positive definite a.
func solveCholesky(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, fmt.Errorf("matrix is not positive definite")
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}

	// forward: l*y = b
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= l[i][k] * y[k]
		}
		y[i] = sum / l[i][i]
	}

	// backward: l^T*x = y
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for k := i + 1; k < n; k++ {
			sum -= l[k][i] * x[k]
		}
		x[i] = sum / l[i][i]
	}
	return x, nil
}
