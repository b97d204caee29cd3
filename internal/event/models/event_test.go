package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveConfig(t *testing.T) {
	tpl := &EventTemplate{
		LandingTitle: "Default title",
		Defaults:     map[string]string{"a": "1", "b": "2"},
	}
	ev := &Event{Overrides: map[string]string{"b": "override", ConfigLandingTitle: "Custom"}}

	cfg := EffectiveConfig(tpl, ev)
	assert.Equal(t, "1", cfg["a"])
	assert.Equal(t, "override", cfg["b"])
	assert.Equal(t, "Custom", cfg[ConfigLandingTitle])
	assert.Equal(t, "2", tpl.Defaults["b"], "template defaults are not mutated")
}

func TestDefaultTemplates(t *testing.T) {
	tpls := DefaultTemplates(time.Now())
	require.Len(t, tpls, len(EventTypes))
	names := map[string]bool{}
	for _, tpl := range tpls {
		names[tpl.Name] = true
		assert.Equal(t, DefaultTemplateName(tpl.EventType), tpl.Name)
	}
	assert.True(t, names["default-bmm-voting"])
}

func TestParseEventType(t *testing.T) {
	et, err := ParseEventType(" bmm_voting ")
	require.NoError(t, err)
	assert.Equal(t, EventTypeBMMVoting, et)

	_, err = ParseEventType("PICNIC")
	assert.Error(t, err)
}
