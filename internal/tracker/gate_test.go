package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/appdata"
)

type recorder struct {
	ops []string
}

type fakeSettings struct {
	rec    *recorder
	values map[string]string
	getErr error
	setErr error
}

func (f *fakeSettings) GetSetting(_ context.Context, userID, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[userID+"/"+key]
	return v, ok, nil
}

func (f *fakeSettings) SetSetting(_ context.Context, userID, key, value string) error {
	f.rec.ops = append(f.rec.ops, "set:"+key)
	if f.setErr != nil {
		return f.setErr
	}
	f.values[userID+"/"+key] = value
	return nil
}

type fakeAnalyses struct {
	rec    *recorder
	stored []*analysis.AIAnalysis
	err    error
}

func (f *fakeAnalyses) AddAnalysis(_ context.Context, _ string, a *analysis.AIAnalysis) error {
	f.rec.ops = append(f.rec.ops, "add:"+string(a.Type))
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, a)
	return nil
}

type fakeGenerator struct {
	weekly  int
	monthly int
	err     error
}

func (f *fakeGenerator) GenerateWeeklyReport(context.Context, *appdata.AppData, time.Time) (string, error) {
	f.weekly++
	if f.err != nil {
		return "", f.err
	}
	return "## Weekly Neural Audit", nil
}

func (f *fakeGenerator) GenerateMonthlyReport(context.Context, *appdata.AppData, time.Time) (string, error) {
	f.monthly++
	if f.err != nil {
		return "", f.err
	}
	return "## Monthly System Review", nil
}

type gateFixture struct {
	rec       *recorder
	settings  *fakeSettings
	analyses  *fakeAnalyses
	generator *fakeGenerator
	gate      *ReportGate
}

func newGateFixture() *gateFixture {
	rec := &recorder{}
	f := &gateFixture{
		rec:       rec,
		settings:  &fakeSettings{rec: rec, values: map[string]string{}},
		analyses:  &fakeAnalyses{rec: rec},
		generator: &fakeGenerator{},
	}
	f.gate = NewReportGate(f.settings, f.analyses, f.generator)
	return f
}

func TestDueReport(t *testing.T) {
	cases := []struct {
		date string
		typ  analysis.AnalysisType
		due  bool
	}{
		{"2024-06-04", "", false},
		{"2024-06-09", analysis.Weekly, true},
		{"2024-05-31", analysis.Monthly, true},
		{"2024-06-30", analysis.Monthly, true},
		{"2024-02-29", analysis.Monthly, true},
		{"2023-02-28", analysis.Monthly, true},
	}

	for _, tc := range cases {
		typ, due := DueReport(at(tc.date))
		assert.Equal(t, tc.due, due, tc.date)
		assert.Equal(t, tc.typ, typ, tc.date)
	}
}

func TestReportGate_NotDue(t *testing.T) {
	f := newGateFixture()

	res, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: at("2024-06-04")}, appdata.Default())
	require.NoError(t, err)
	assert.False(t, res.Due)
	assert.Empty(t, f.rec.ops)
	assert.Zero(t, f.generator.weekly)
}

func TestReportGate_GeneratesOncePerDay(t *testing.T) {
	f := newGateFixture()
	gc := GateContext{UserID: "u1", Now: at("2024-06-09")}
	data := appdata.Default()

	res, err := f.gate.Check(context.Background(), gc, data)
	require.NoError(t, err)
	assert.True(t, res.Due)
	assert.True(t, res.Generated)
	assert.True(t, res.Celebrate)
	assert.Equal(t, analysis.Weekly, res.Type)
	require.NotNil(t, res.Analysis)
	assert.Equal(t, "2024-06-09", res.Analysis.Date)
	assert.Len(t, data.Analytics, 1)

	for i := 0; i < 3; i++ {
		again, err := f.gate.Check(context.Background(), gc, appdata.Default())
		require.NoError(t, err)
		assert.True(t, again.AlreadySeen)
		assert.False(t, again.Celebrate)
	}

	assert.Equal(t, 1, f.generator.weekly)
	assert.Len(t, f.analyses.stored, 1)
	assert.Equal(t, "true", f.settings.values["u1/seen_popup_2024-06-09"])
}

func TestReportGate_PersistsBeforeMarkingSeen(t *testing.T) {
	f := newGateFixture()

	_, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: at("2024-05-31")}, appdata.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"add:monthly", "set:seen_popup_2024-05-31"}, f.rec.ops)
	assert.Equal(t, 1, f.generator.monthly)
}

func TestReportGate_GenerationFailureLeavesFlagUnset(t *testing.T) {
	f := newGateFixture()
	f.generator.err = errors.New("provider down")
	gc := GateContext{UserID: "u1", Now: at("2024-06-09")}

	_, err := f.gate.Check(context.Background(), gc, appdata.Default())
	require.Error(t, err)
	assert.Empty(t, f.settings.values)
	assert.Empty(t, f.analyses.stored)

	f.generator.err = nil
	res, err := f.gate.Check(context.Background(), gc, appdata.Default())
	require.NoError(t, err)
	assert.True(t, res.Generated)
	assert.Equal(t, 2, f.generator.weekly)
}

func TestReportGate_PersistFailureLeavesFlagUnset(t *testing.T) {
	f := newGateFixture()
	f.analyses.err = errors.New("insert failed")

	_, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: at("2024-06-09")}, appdata.Default())
	require.Error(t, err)
	assert.Equal(t, []string{"add:weekly"}, f.rec.ops)
	assert.Empty(t, f.settings.values)
}

func TestReportGate_ExistingReportOnlyMarksSeen(t *testing.T) {
	f := newGateFixture()
	data := appdata.Default()
	data.Analytics = append(data.Analytics, &analysis.AIAnalysis{ID: "a1", Date: "2024-06-09", Type: analysis.Weekly})

	res, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: at("2024-06-09")}, data)
	require.NoError(t, err)
	assert.False(t, res.Generated)
	assert.True(t, res.Celebrate)
	assert.Equal(t, "a1", res.Analysis.ID)
	assert.Zero(t, f.generator.weekly)
	assert.Equal(t, []string{"set:seen_popup_2024-06-09"}, f.rec.ops)
}

func TestReportGate_SetFlagFailureStillCelebrates(t *testing.T) {
	f := newGateFixture()
	f.settings.setErr = errors.New("timeout")

	res, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: at("2024-06-09")}, appdata.Default())
	require.NoError(t, err)
	assert.True(t, res.Celebrate)
	assert.Len(t, f.analyses.stored, 1)
}

func TestReportGate_SettingsReadError(t *testing.T) {
	f := newGateFixture()
	f.settings.getErr = errors.New("db down")

	_, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: at("2024-06-09")}, appdata.Default())
	require.Error(t, err)
	assert.Zero(t, f.generator.weekly)
}

func TestReportGate_FlagIsPerUser(t *testing.T) {
	f := newGateFixture()
	now := at("2024-06-09")

	_, err := f.gate.Check(context.Background(), GateContext{UserID: "u1", Now: now}, appdata.Default())
	require.NoError(t, err)
	res, err := f.gate.Check(context.Background(), GateContext{UserID: "u2", Now: now}, appdata.Default())
	require.NoError(t, err)

	assert.True(t, res.Generated)
	assert.Equal(t, 2, f.generator.weekly)
}
