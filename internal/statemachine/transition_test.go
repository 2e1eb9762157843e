package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
)

var lights = New[light]().
	Allow(red, green).
	Allow(green, yellow).
	Allow(yellow, red)

type lamp struct{ state light }

func (l lamp) CurrentState() light               { return l.state }
func (l lamp) CanTransitionTo(target light) bool { return lights.IsAllowed(l.state, target) }

func TestTransitionMap_IsAllowed(t *testing.T) {
	tests := []struct {
		name string
		from light
		to   light
		want bool
	}{
		{"registered edge", red, green, true},
		{"registered edge 2", green, yellow, true},
		{"reverse edge not registered", green, red, false},
		{"no transitive closure", red, yellow, false},
		{"self loop not registered", red, red, false},
		{"unknown state", light("blue"), red, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lights.IsAllowed(tt.from, tt.to))
		})
	}
}

func TestTransitionMap_AllowMultipleTargets(t *testing.T) {
	m := New[string]().Allow("a", "b", "c")

	assert.True(t, m.IsAllowed("a", "b"))
	assert.True(t, m.IsAllowed("a", "c"))
	assert.False(t, m.IsAllowed("b", "c"))

	// later registrations extend rather than replace
	m.Allow("a", "d")
	assert.True(t, m.IsAllowed("a", "b"))
	assert.True(t, m.IsAllowed("a", "d"))
}

func TestTransitionMap_Check(t *testing.T) {
	require.NoError(t, lights.Check(red, green))

	err := lights.Check(red, yellow)
	require.Error(t, err)

	var terr *TransitionError[light]
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, red, terr.From)
	assert.Equal(t, yellow, terr.To)
	assert.Equal(t, "illegal transition from red to yellow", err.Error())
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() { Must[light](lamp{red}, green) })
	assert.Panics(t, func() { Must[light](lamp{red}, yellow) })
}
