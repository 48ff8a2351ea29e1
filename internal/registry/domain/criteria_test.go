package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestLevelBandContains(t *testing.T) {
	band := &LevelBand{Name: "Professional", MinYears: 3, MaxYears: intPtr(5)}

	assert.False(t, band.Contains(2.99))
	assert.True(t, band.Contains(3))
	assert.True(t, band.Contains(5))
	// max of 5 covers fractional years up to 6 so integer ladders are gapless
	assert.True(t, band.Contains(5.9))
	assert.False(t, band.Contains(6))
}

func TestLevelBandContains_Unbounded(t *testing.T) {
	band := &LevelBand{Name: "Expert", MinYears: 9}

	assert.False(t, band.Contains(8.99))
	assert.True(t, band.Contains(9))
	assert.True(t, band.Contains(50))
}

func TestBalanceOf(t *testing.T) {
	balanced := BalanceOf([]*Criterion{
		{Weight: 60, Active: true},
		{Weight: 40, Active: true},
		{Weight: 99, Active: false},
	})
	assert.True(t, balanced.Balanced)
	assert.InDelta(t, 100.0, balanced.TotalWeight, 0.001)
	assert.Zero(t, balanced.Remaining)
	assert.Zero(t, balanced.Excess)

	under := BalanceOf([]*Criterion{{Weight: 70, Active: true}})
	assert.False(t, under.Balanced)
	assert.InDelta(t, 30.0, under.Remaining, 0.001)

	over := BalanceOf([]*Criterion{
		{Weight: 70, Active: true},
		{Weight: 50, Active: true},
	})
	assert.False(t, over.Balanced)
	assert.InDelta(t, 20.0, over.Excess, 0.001)

	empty := BalanceOf(nil)
	assert.False(t, empty.Balanced)
	assert.InDelta(t, 100.0, empty.Remaining, 0.001)
}

func TestCategoryIsValid(t *testing.T) {
	for _, cat := range ValidCategories() {
		assert.True(t, cat.IsValid())
	}
	assert.False(t, Category("charisma").IsValid())
}
