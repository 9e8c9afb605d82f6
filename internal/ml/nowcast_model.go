package ml

import "fmt"

// SequenceSample is one time step of a nowcast input sequence, oldest first.
type SequenceSample struct {
	RainfallMM  float64
	Temperature float64
	Humidity    float64
}

// NowcastModel produces a base flood probability from a recent weather
// sequence. Time steps are blended with recency weights so the newest
// reading dominates.
type NowcastModel struct {
	version string
	params  nowcastParams
}

func newNowcastModel(version string, params *nowcastParams) (*NowcastModel, error) {
	if params.SequenceLength <= 0 {
		return nil, fmt.Errorf("nowcast artifact sequence_length must be positive, got %d", params.SequenceLength)
	}
	if len(params.FeatureWeights) == 0 {
		return nil, fmt.Errorf("nowcast artifact has no feature weights")
	}
	if params.RecencyDecay <= 0 || params.RecencyDecay > 1 {
		return nil, fmt.Errorf("nowcast artifact recency_decay out of (0,1]: %f", params.RecencyDecay)
	}
	return &NowcastModel{version: version, params: *params}, nil
}

func (m *NowcastModel) Family() Family  { return FamilyNowcaster }
func (m *NowcastModel) Version() string { return m.version }

// SequenceLength returns the minimum number of samples an input needs.
func (m *NowcastModel) SequenceLength() int { return m.params.SequenceLength }

// BaseProbability computes the flood probability from the last
// SequenceLength samples of seq. The caller guarantees len(seq) is at least
// SequenceLength.
func (m *NowcastModel) BaseProbability(seq []SequenceSample) float64 {
	window := seq[len(seq)-m.params.SequenceLength:]

	// Recency weights: newest sample has weight 1, each step back decays.
	var weightSum, signal float64
	for i, sample := range window {
		w := pow(m.params.RecencyDecay, len(window)-1-i)
		weightSum += w
		signal += w * (m.params.FeatureWeights["rainfall_mm"]*sample.RainfallMM +
			m.params.FeatureWeights["temperature"]*sample.Temperature +
			m.params.FeatureWeights["humidity"]*sample.Humidity)
	}
	if weightSum > 0 {
		signal /= weightSum
	}

	return sigmoid(m.params.Bias + m.params.Scale*signal)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
