package triggers

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStopOptionAvailable_SameNFC(t *testing.T) {
	var st models.StartTriggers
	assert.False(t, IsStopOptionAvailable(models.StopSameNFC, st))
	assert.NotEmpty(t, UnavailabilityReason(models.StopSameNFC, st))

	st.AnyNFC = true
	assert.True(t, IsStopOptionAvailable(models.StopSameNFC, st))
	assert.Empty(t, UnavailabilityReason(models.StopSameNFC, st))

	st = models.StartTriggers{SpecificNFC: true}
	assert.True(t, IsStopOptionAvailable(models.StopSameNFC, st))
}

func TestIsStopOptionAvailable_SameQR(t *testing.T) {
	assert.False(t, IsStopOptionAvailable(models.StopSameQR, models.StartTriggers{AnyNFC: true}))
	assert.True(t, IsStopOptionAvailable(models.StopSameQR, models.StartTriggers{SpecificQR: true}))
}

func TestIsStopOptionAvailable_OthersAlwaysAvailable(t *testing.T) {
	var st models.StartTriggers
	for _, opt := range models.AllStopOptions {
		if opt == models.StopSameNFC || opt == models.StopSameQR {
			continue
		}
		assert.True(t, IsStopOptionAvailable(opt, st), opt)
	}
}

func TestSetStartTrigger_ClearsDependentStopFlag(t *testing.T) {
	p := &models.Profile{}

	_, err := SetStartTrigger(p, models.StartAnyNFC, true)
	require.NoError(t, err)
	require.NoError(t, SetStopCondition(p, models.StopSameNFC, true))

	_, err = SetStartTrigger(p, models.StartSpecificNFC, true)
	require.NoError(t, err)

	cleared, err := SetStartTrigger(p, models.StartAnyNFC, false)
	require.NoError(t, err)
	assert.Empty(t, cleared, "specific NFC still satisfies same-NFC")
	assert.True(t, p.StopConditions.SameNFC)

	cleared, err = SetStartTrigger(p, models.StartSpecificNFC, false)
	require.NoError(t, err)
	assert.Equal(t, []models.StopOption{models.StopSameNFC}, cleared)
	assert.False(t, p.StopConditions.SameNFC)
}

func TestSetStartTrigger_UnknownOption(t *testing.T) {
	p := &models.Profile{}
	_, err := SetStartTrigger(p, "carrier_pigeon", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestSetStopCondition_RejectsUnavailable(t *testing.T) {
	p := &models.Profile{}
	err := SetStopCondition(p, models.StopSameQR, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.False(t, p.StopConditions.SameQR)

	require.NoError(t, SetStopCondition(p, models.StopSameQR, false))
}

func TestStopAllowed(t *testing.T) {
	sc := models.StopConditions{Timer: true}
	assert.True(t, StopAllowed(sc, MethodTimer))
	assert.False(t, StopAllowed(sc, MethodNFC))
	assert.False(t, StopAllowed(sc, MethodQR))
	assert.False(t, StopAllowed(sc, MethodManual))

	sc = models.StopConditions{SameQR: true}
	assert.True(t, StopAllowed(sc, MethodQR))
	assert.False(t, StopAllowed(sc, "unknown"))
}

func TestAnyStartAllowed(t *testing.T) {
	st := models.StartTriggers{Schedule: true}
	assert.False(t, AnyStartAllowed(st, []models.StartOption{models.StartManual}))
	assert.True(t, AnyStartAllowed(st, []models.StartOption{models.StartManual, models.StartSchedule}))
	assert.False(t, AnyStartAllowed(st, nil))

	st = models.StartTriggers{SpecificQR: true}
	assert.True(t, AnyStartAllowed(st, []models.StartOption{models.StartAnyQR, models.StartSpecificQR}))
}

func TestValidateProfile(t *testing.T) {
	valid := models.Profile{
		Name:           "Work",
		StrategyID:     "nfc_manual",
		StartTriggers:  models.StartTriggers{Manual: true},
		StopConditions: models.StopConditions{AnyNFC: true},
	}
	req := Requirements{Start: []models.StartOption{models.StartManual}, Stop: []StopMethod{MethodNFC}}

	tests := []struct {
		name    string
		mutate  func(p *models.Profile)
		req     Requirements
		wantErr bool
		field   string
	}{
		{name: "valid", mutate: func(*models.Profile) {}, req: req},
		{
			name:    "empty name",
			mutate:  func(p *models.Profile) { p.Name = " " },
			req:     req,
			wantErr: true, field: "name",
		},
		{
			name:    "no start triggers",
			mutate:  func(p *models.Profile) { p.StartTriggers = models.StartTriggers{} },
			req:     Requirements{},
			wantErr: true, field: "start_triggers",
		},
		{
			name:    "no stop conditions",
			mutate:  func(p *models.Profile) { p.StopConditions = models.StopConditions{} },
			req:     Requirements{},
			wantErr: true, field: "stop_conditions",
		},
		{
			name:    "dangling same-qr",
			mutate:  func(p *models.Profile) { p.StopConditions.SameQR = true },
			req:     req,
			wantErr: true, field: "stop_conditions.same_qr",
		},
		{
			name:    "strategy stop method disabled",
			mutate:  func(p *models.Profile) { p.StopConditions = models.StopConditions{Manual: true} },
			req:     req,
			wantErr: true, field: "stop_conditions",
		},
		{
			name: "schedule-only start is accepted",
			mutate: func(p *models.Profile) {
				p.StartTriggers = models.StartTriggers{Schedule: true}
				p.Schedule = &models.Schedule{Days: []time.Weekday{time.Monday}, StartMinute: 540, EndMinute: 1020}
			},
			req: req,
		},
		{
			name:    "schedule trigger without schedule",
			mutate:  func(p *models.Profile) { p.StopConditions.Schedule = true },
			req:     req,
			wantErr: true, field: "schedule",
		},
		{
			name:    "breaks need a duration",
			mutate:  func(p *models.Profile) { p.BreaksEnabled = true },
			req:     req,
			wantErr: true, field: "break_duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := ValidateProfile(p, tt.req)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())
	one := ValidationErrors{{Field: "name", Message: "must not be empty"}}
	assert.Equal(t, "name: must not be empty", one.Error())

	two := ValidationErrors{{Field: "a", Message: "x"}, {Field: "b", Value: 3, Message: "y"}}
	assert.Equal(t, "2 validation errors:\n  1. a: x\n  2. b: y (got: 3)", two.Error())
}
