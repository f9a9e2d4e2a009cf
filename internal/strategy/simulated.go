package strategy

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/shaiso/Autocal/internal/domain"
)

// Значения по умолчанию симулированной стратегии.
const (
	defaultRealA        = 10.0
	defaultRealB        = 20.0
	defaultSigma        = 1.0
	defaultSweepPoints  = 101
	defaultDownsampling = 5
	defaultBadThreshold = 5.0
)

// SimulatedLinear — симулированная калибровка линейной модели y = a*x + b.
//
// Воспроизводит поведение настоящей стратегии без железа: свип по x,
// гауссов шум, фит наименьшими квадратами, производный третий параметр
// a*b, инъекция плохих данных через опции. Используется в тестах и в
// режиме --simulate CLI.
//
// Опции узла:
//   - real_a, real_b       — "истинные" параметры модели
//   - sigma                — СКО шума (0 — детерминированный сигнал)
//   - downsampling         — шаг прореживания для quick-скана
//   - bad_data_threshold   — порог максимума |y|, ниже которого данные плохие
//   - inject_bad_data      — всегда возвращать чистый шум вместо сигнала
//   - seed                 — зерно генератора шума
type SimulatedLinear struct {
	name      string
	paramKeys []string
	tolerance float64

	realA        float64
	realB        float64
	sigma        float64
	downsampling int
	badThreshold float64
	injectBad    bool

	rng *rand.Rand
	log LogBuffer
}

// NewSimulatedLinear — фабрика для реестра стратегий.
func NewSimulatedLinear(def domain.NodeDef) (Strategy, error) {
	if len(def.ParamKeys) != 2 && len(def.ParamKeys) != 3 {
		return nil, fmt.Errorf("%w: simulated_linear wants 2 params (a, b) or 3 (a, b, a*b), got %d",
			ErrInvalidOptions, len(def.ParamKeys))
	}

	downsampling := OptInt(def.Options, "downsampling", defaultDownsampling)
	if downsampling < 1 {
		return nil, fmt.Errorf("%w: downsampling must be >= 1", ErrInvalidOptions)
	}

	seed := uint64(OptInt(def.Options, "seed", 1))

	return &SimulatedLinear{
		name:         def.Name,
		paramKeys:    def.ParamKeys,
		tolerance:    def.Tolerance,
		realA:        OptFloat(def.Options, "real_a", defaultRealA),
		realB:        OptFloat(def.Options, "real_b", defaultRealB),
		sigma:        OptFloat(def.Options, "sigma", defaultSigma),
		downsampling: downsampling,
		badThreshold: OptFloat(def.Options, "bad_data_threshold", defaultBadThreshold),
		injectBad:    OptBool(def.Options, "inject_bad_data", false),
		rng:          rand.New(rand.NewPCG(seed, seed)),
	}, nil
}

// Scan измеряет линейный отклик по свипу 0..10.
// В режиме ScanQuick свип прореживается в downsampling раз.
func (s *SimulatedLinear) Scan(ctx context.Context, deps []float64, mode ScanMode) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}

	step := 1
	if mode == ScanQuick {
		step = s.downsampling
	}

	var obs Observation
	for i := 0; i < defaultSweepPoints; i += step {
		x := 10.0 * float64(i) / float64(defaultSweepPoints-1)
		var y float64
		if s.injectBad {
			y = s.sigma * s.rng.NormFloat64()
		} else {
			y = s.realA*x + s.realB + s.sigma*s.rng.NormFloat64()
		}
		obs.X = append(obs.X, x)
		obs.Y = append(obs.Y, y)
	}

	s.log.Printf("scan %s: %d points, deps=%v", mode, obs.Len(), deps)
	return obs, nil
}

// BadData считает наблюдение испорченным, когда отклик неотличим от
// шума: максимум |y| ниже порога.
func (s *SimulatedLinear) BadData(obs Observation) bool {
	var peak float64
	for _, y := range obs.Y {
		if a := math.Abs(y); a > peak {
			peak = a
		}
	}
	if peak < s.badThreshold {
		s.log.Printf("bad data: peak %.3f below threshold %.3f", peak, s.badThreshold)
		return true
	}
	return false
}

// TestInSpec фитирует наблюдение и сравнивает результат с целевыми
// параметрами по максимальной относительной ошибке.
func (s *SimulatedLinear) TestInSpec(obs Observation, target []float64) bool {
	result := s.Analyze(obs)
	if !result.Succeeded {
		return false
	}
	if len(target) != len(result.Values) {
		return false
	}

	var maxErr float64
	for i, v := range result.Values {
		if target[i] == 0 {
			if v != 0 {
				return false
			}
			continue
		}
		if relErr := math.Abs(v/target[i] - 1); relErr > maxErr {
			maxErr = relErr
		}
	}

	s.log.Printf("in-spec test: max relative error %.4f, tolerance %.4f", maxErr, s.tolerance)
	return maxErr <= s.tolerance
}

// Analyze фитирует y = a*x + b наименьшими квадратами и добавляет
// производный параметр a*b, если узел объявил три параметра.
func (s *SimulatedLinear) Analyze(obs Observation) AnalyzeResult {
	n := float64(obs.Len())
	if obs.Len() < 2 {
		s.log.Printf("fit failed: %d points is not enough", obs.Len())
		return AnalyzeResult{ErrKind: ErrKindFittingFailure}
	}

	var sumX, sumY, sumXX, sumXY float64
	for i, x := range obs.X {
		y := obs.Y[i]
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	det := n*sumXX - sumX*sumX
	if det == 0 {
		s.log.Printf("fit failed: degenerate sweep")
		return AnalyzeResult{ErrKind: ErrKindFittingFailure}
	}

	a := (n*sumXY - sumX*sumY) / det
	b := (sumY*sumXX - sumX*sumXY) / det

	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		s.log.Printf("fit failed: non-finite parameters")
		return AnalyzeResult{ErrKind: ErrKindFittingFailure}
	}

	// Линейная модель без наклона — вне допустимого семейства:
	// калибровка на плоском отклике физически бессмысленна.
	if a == 0 {
		s.log.Printf("bad fitting: zero slope")
		return AnalyzeResult{ErrKind: ErrKindBadFitting}
	}

	values := []float64{a, b}
	if len(s.paramKeys) == 3 {
		values = append(values, a*b)
	}

	s.log.Printf("fit: a=%.4f b=%.4f", a, b)
	return AnalyzeResult{Succeeded: true, Values: values}
}

// Log опустошает диагностический буфер стратегии.
func (s *SimulatedLinear) Log() string {
	return s.log.Drain()
}
