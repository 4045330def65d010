package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

func TestParseScenarios_EmptyMeansDefault(t *testing.T) {
	t.Parallel()

	scenarios, err := parseScenarios("", "")
	require.NoError(t, err)
	assert.Nil(t, scenarios)
}

func TestParseScenarios_CustomUtilizations(t *testing.T) {
	t.Parallel()

	scenarios, err := parseScenarios("0.6, 0.9", "bare")
	require.NoError(t, err)
	assert.Equal(t, []model.ROIScenario{
		{UtilizationRate: 0.6, Mode: model.ModeBare},
		{UtilizationRate: 0.9, Mode: model.ModeBare},
	}, scenarios)
}

func TestParseScenarios_ModeGridKeepsModeOuter(t *testing.T) {
	t.Parallel()

	scenarios, err := parseScenarios("0.5,0.7", "")
	require.NoError(t, err)
	require.Len(t, scenarios, 4)
	assert.Equal(t, model.ModeBare, scenarios[0].Mode)
	assert.Equal(t, model.ModeBare, scenarios[1].Mode)
	assert.Equal(t, model.ModeOperated, scenarios[2].Mode)
	assert.Equal(t, model.ModeOperated, scenarios[3].Mode)
}

func TestParseScenarios_BadValues(t *testing.T) {
	t.Parallel()

	_, err := parseScenarios("high", "")
	assert.Error(t, err)

	_, err = parseScenarios("0.5", "chartered")
	assert.Error(t, err)
}
