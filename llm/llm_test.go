package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvolve/arx-go-sdk/core"
)

func personSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
			"age":  map[string]interface{}{"type": "integer"},
		},
		"required": []string{"name"},
	}
}

func TestValidateJSONConforming(t *testing.T) {
	err := ValidateJSON(personSchema(), []byte(`{"name":"ada","age":36}`))
	assert.NoError(t, err)
}

func TestValidateJSONMissingRequired(t *testing.T) {
	err := ValidateJSON(personSchema(), []byte(`{"age":36}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func TestValidateJSONWrongType(t *testing.T) {
	err := ValidateJSON(personSchema(), []byte(`{"name":"ada","age":"old"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func TestValidateJSONNotJSON(t *testing.T) {
	err := ValidateJSON(personSchema(), []byte(`here is my answer`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("try again: %w", core.ErrRateLimited)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentFailure(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("broken: %w", core.ErrServiceError)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryBudgetExhaustion(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("slow: %w", core.ErrTimeout)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.Equal(t, 3, calls) // initial attempt plus two retries
}

func TestNilPolicyRunsOnce(t *testing.T) {
	var p *RetryPolicy
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("fail: %w", core.ErrRateLimited)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithTimeoutDerivesDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), &Options{Timeout: time.Minute})
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.True(t, time.Until(deadline) <= time.Minute)

	ctx2, cancel2 := WithTimeout(context.Background(), nil)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}

func TestRecoverableClassification(t *testing.T) {
	assert.True(t, core.Recoverable(fmt.Errorf("x: %w", core.ErrRateLimited)))
	assert.True(t, core.Recoverable(fmt.Errorf("x: %w", core.ErrTimeout)))
	assert.False(t, core.Recoverable(fmt.Errorf("x: %w", core.ErrServiceError)))
	assert.False(t, core.Recoverable(fmt.Errorf("x: %w", core.ErrSchemaMismatch)))
	assert.False(t, core.Recoverable(nil))
}
