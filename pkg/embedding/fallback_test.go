package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	name string
	dim  int
	err  error
	vec  []float32
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) Dimension() int    { return s.dim }
func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func TestFallbackProvider_UsesFirstHealthy(t *testing.T) {
	unreachable := &stubProvider{name: "remote", err: errors.New("connection refused")}
	healthy := &stubProvider{name: "local", dim: 3, vec: []float32{0.1, 0.2, 0.3}}

	fp := NewFallbackProvider(zap.NewNop(), []Provider{unreachable, healthy},
		[]time.Duration{50 * time.Millisecond, 50 * time.Millisecond})

	vecs, err := fp.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, "local", fp.LastUsed())
}

func TestFallbackProvider_AllUnavailable(t *testing.T) {
	p1 := &stubProvider{name: "remote", err: errors.New("timeout")}
	p2 := &stubProvider{name: "local", err: errors.New("connection refused")}

	fp := NewFallbackProvider(zap.NewNop(), []Provider{p1, p2}, nil)

	_, err := fp.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNormalizeVector_UnitLength(t *testing.T) {
	v := normalizeVector([]float32{3, 4})
	var mag float64
	for _, x := range v {
		mag += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, mag, 1e-6)
}

func TestNormalizeVector_ZeroVector(t *testing.T) {
	v := normalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}
