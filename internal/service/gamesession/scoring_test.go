package gamesession

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_InstantAnswerGivesMaxPoints(t *testing.T) {
	assert.Equal(t, 1000, Score(1000, 0, 10000, true))
}

func TestScore_AnswerAtWindowEdgeGivesHalf(t *testing.T) {
	// Ответ ровно на границе окна принимается и дает ровно половину
	assert.Equal(t, 500, Score(1000, 10000, 10000, true))
}

func TestScore_IncorrectAnswerGivesZero(t *testing.T) {
	assert.Equal(t, 0, Score(1000, 0, 10000, false))
	assert.Equal(t, 0, Score(1000, 5000, 10000, false))
}

func TestScore_AfterWindowGivesZero(t *testing.T) {
	assert.Equal(t, 0, Score(1000, 10001, 10000, true))
}

func TestScore_LinearCurve(t *testing.T) {
	testCases := []struct {
		name           string
		responseTimeMs int64
		expected       int
	}{
		{"мгновенный ответ", 0, 1000},
		{"четверть окна", 2500, 875},
		{"половина окна", 5000, 750},
		{"три четверти окна", 7500, 625},
		{"граница окна", 10000, 500},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Score(1000, tc.responseTimeMs, 10000, true))
		})
	}
}

func TestScore_MonotonicNonIncreasing(t *testing.T) {
	// Более медленный ответ никогда не дает больше очков
	prev := Score(1000, 0, 10000, true)
	for ms := int64(1); ms <= 10000; ms += 37 {
		current := Score(1000, ms, 10000, true)
		assert.LessOrEqual(t, current, prev, "score увеличился на t=%d мс", ms)
		prev = current
	}
}

func TestScore_Deterministic(t *testing.T) {
	// Одинаковые входы всегда дают одинаковый результат
	first := Score(750, 3333, 20000, true)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(750, 3333, 20000, true))
	}
}

func TestScore_NegativeResponseTimeClampedToZero(t *testing.T) {
	// Рассинхрон часов не должен давать больше maxPoints
	assert.Equal(t, 1000, Score(1000, -50, 10000, true))
}

func TestScore_DegenerateInputs(t *testing.T) {
	assert.Equal(t, 0, Score(0, 0, 10000, true))
	assert.Equal(t, 0, Score(-10, 0, 10000, true))
	assert.Equal(t, 0, Score(1000, 0, 0, true))
}

func TestScore_OddMaxPoints(t *testing.T) {
	// Целочисленная арифметика: на границе ровно maxPoints - maxPoints/2
	assert.Equal(t, 999, Score(999, 0, 10000, true))
	assert.Equal(t, 500, Score(999, 10000, 10000, true))
}
