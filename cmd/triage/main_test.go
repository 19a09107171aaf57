package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4care/ai4care/internal/interactionlog"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/triage"
	"github.com/ai4care/ai4care/pkg/geo"
)

type fakeTriager struct {
	result      triage.TriageResult
	err         error
	explanation string
	calls       int
}

func (f *fakeTriager) GetTriageResult(_ context.Context, in triage.SymptomInput) (triage.TriageResult, error) {
	f.calls++
	if f.err != nil {
		return triage.TriageResult{}, f.err
	}
	r := f.result
	r.SymptomDescription = triage.ComposeDescription(in)
	return r, nil
}

func (f *fakeTriager) GetExplainedOutcome(context.Context, triage.TriageResult) string {
	if f.explanation == "" {
		return triage.FallbackExplanation
	}
	return f.explanation
}

type fakeFinder struct {
	origin geo.Point
}

func (f *fakeFinder) NearbyEmergencyRooms(_ context.Context, origin geo.Point) ([]places.Facility, error) {
	f.origin = origin
	return []places.Facility{{
		Place:          places.Place{Name: "OLVG Oost", Address: "Oosterpark 9"},
		Distance:       "1.4 km",
		DistanceSource: places.DistanceSourceEstimate,
	}}, nil
}

func (f *fakeFinder) SearchByAddress(context.Context, string) (*places.AddressSearch, error) {
	return nil, places.ErrLocationNotFound
}

func newTestApp(tr *fakeTriager, finder facilityFinder) *app {
	return &app{
		configured: true,
		logger:     zerolog.Nop(),
		triager:    tr,
		finder:     finder,
		history: interactionlog.New(interactionlog.Config{
			Storage: interactionlog.NewMemoryStorage(),
			Logger:  zerolog.Nop(),
		}),
	}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const description = "Crushing chest pain spreading to my left arm"

func TestAssess_RedWithNearbyER(t *testing.T) {
	tr := &fakeTriager{
		result:      triage.TriageResult{UrgencyLevel: triage.UrgencyRed, Reasoning: "Possible cardiac event."},
		explanation: "Chest pain that spreads can signal a heart attack.",
	}
	finder := &fakeFinder{}
	a := newTestApp(tr, finder)

	out, err := run(t, a, "assess", "-d", description, "-p", "9", "-t", "Stabbing", "--explain", "--lat", "52.37", "--lng", "4.9")
	require.NoError(t, err)

	assert.Contains(t, out, "High Urgency [RED]")
	assert.Contains(t, out, "Possible cardiac event.")
	assert.Contains(t, out, "Call Emergency Services")
	assert.Contains(t, out, "Chest pain that spreads can signal a heart attack.")
	assert.Contains(t, out, "OLVG Oost")
	assert.Contains(t, out, "1.4 km (straight line)")
	assert.Equal(t, geo.Point{Lat: 52.37, Lng: 4.9}, finder.origin)

	entries, err := a.history.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, triage.UrgencyRed, entries[0].UrgencyLevel)
}

func TestAssess_ValidationFailsBeforeModelCall(t *testing.T) {
	tr := &fakeTriager{}
	out, err := run(t, newTestApp(tr, nil), "assess", "-d", "too short", "-p", "11", "-t", "Dull")

	var ve *triage.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(triage.FieldSymptomDescription))
	assert.True(t, ve.Has(triage.FieldPainLevel))
	assert.Contains(t, out, "painLevel: Please select a pain level.")
	assert.Zero(t, tr.calls)
}

func TestAssess_ModelFailure(t *testing.T) {
	tr := &fakeTriager{err: errors.New("provider down")}
	a := newTestApp(tr, nil)

	_, err := run(t, a, "assess", "-d", description, "-p", "4", "-t", "Dull")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed, try again")

	entries, err := a.history.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssess_GreenSkipsERLookup(t *testing.T) {
	tr := &fakeTriager{result: triage.TriageResult{UrgencyLevel: triage.UrgencyGreen, Reasoning: "Mild."}}
	finder := &fakeFinder{}

	out, err := run(t, newTestApp(tr, finder), "assess", "-d", description, "-p", "1", "-t", "Dull", "--lat", "1", "--lng", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "Low Urgency [GREEN]")
	assert.NotContains(t, out, "emergency rooms")
	assert.Zero(t, finder.origin)
}

func TestAssess_AddressNotFound(t *testing.T) {
	tr := &fakeTriager{result: triage.TriageResult{UrgencyLevel: triage.UrgencyRed, Reasoning: "r"}}

	out, err := run(t, newTestApp(tr, &fakeFinder{}), "assess", "-d", description, "-p", "9", "-t", "Sharp", "--address", "Nowhere 1")
	require.NoError(t, err)
	assert.Contains(t, out, `No location found for "Nowhere 1".`)
}

func TestHistory_ListAndClear(t *testing.T) {
	a := newTestApp(&fakeTriager{}, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a.history.Record(triage.TriageResult{UrgencyLevel: triage.UrgencyGreen, Reasoning: "r", SymptomDescription: "Symptom Description: mild headache\nPain Level: 2/10"}, base)
	a.history.Record(triage.TriageResult{UrgencyLevel: triage.UrgencyYellow, Reasoning: "r", SymptomDescription: "Symptom Description: sprained ankle\nPain Level: 6/10"}, base.Add(time.Hour))

	out, err := run(t, a, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "URGENCY")
	assert.Less(t, bytes.Index([]byte(out), []byte("sprained ankle")), bytes.Index([]byte(out), []byte("mild headache")))
	assert.NotContains(t, out, "Pain Level")

	out, err = run(t, a, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared.")

	out, err = run(t, a, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No assessments recorded yet.")
}

func TestGuidance(t *testing.T) {
	out, err := run(t, newTestApp(&fakeTriager{}, nil), "guidance", "yellow")
	require.NoError(t, err)
	assert.Contains(t, out, "Medium Urgency [YELLOW]")

	_, err = run(t, newTestApp(&fakeTriager{}, nil), "guidance", "blue")
	assert.Error(t, err)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, closer, err := openStorage(ctx, filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	require.NotNil(t, closer)
	assert.IsType(t, &interactionlog.SQLiteStorage{}, s)
	require.NoError(t, closer.Close())

	s, closer, err = openStorage(ctx, filepath.Join(dir, "log"))
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &interactionlog.FileStorage{}, s)

	s, _, err = openStorage(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &interactionlog.MemoryStorage{}, s)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "headache", firstLine("Symptom Description: headache\nPain Level: 2/10", 60))
	assert.Equal(t, "abcd…", firstLine("abcdefgh", 5))
}
