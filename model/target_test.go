package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParsePlayTime(t *testing.T) {
	cases := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{``, 0, false},
		{`12.5`, 12.5, true},
		{`1`, 1, true},
		{`0`, 0, false},
		{`-3`, 0, false},
		{`"12"`, 0, false},
		{`null`, 0, false},
		{`true`, 0, false},
		{`{}`, 0, false},
	}
	for _, tc := range cases {
		got := ParsePlayTime(json.RawMessage(tc.raw))
		if got.Valid != tc.valid || got.Seconds != tc.want {
			t.Errorf("ParsePlayTime(%s) = %+v", tc.raw, got)
		}
	}
}

func TestNonNegativeNumber(t *testing.T) {
	if v, ok := NonNegativeNumber(json.RawMessage(`0`)); !ok || v != 0 {
		t.Errorf("zero = %v %v", v, ok)
	}
	if _, ok := NonNegativeNumber(json.RawMessage(`-1`)); ok {
		t.Error("negative accepted")
	}
	if _, ok := NonNegativeNumber(nil); ok {
		t.Error("absent accepted")
	}
}

func TestNextBestTime(t *testing.T) {
	ten := 10.0
	if got := NextBestTime(nil, PlayTime{}); got != nil {
		t.Errorf("no time, no best = %v", *got)
	}
	if got := NextBestTime(nil, PlayTime{Seconds: 12, Valid: true}); got == nil || *got != 12 {
		t.Errorf("first time = %v", got)
	}
	if got := NextBestTime(&ten, PlayTime{Seconds: 12, Valid: true}); *got != 10 {
		t.Errorf("slower run = %v", *got)
	}
	if got := NextBestTime(&ten, PlayTime{Seconds: 8, Valid: true}); *got != 8 {
		t.Errorf("faster run = %v", *got)
	}
	got := NextBestTime(&ten, PlayTime{})
	if got == nil || *got != 10 || got == &ten {
		t.Errorf("absent time = %v", got)
	}
	for _, bad := range []float64{0, -5, math.Inf(1), math.NaN()} {
		if got := NextBestTime(&ten, PlayTime{Seconds: bad, Valid: true}); *got != 10 {
			t.Errorf("hand built %v lowered best to %v", bad, *got)
		}
		if got := NextBestTime(nil, PlayTime{Seconds: bad, Valid: true}); got != nil {
			t.Errorf("hand built %v set best to %v", bad, *got)
		}
	}
}

func TestNewPlayTime(t *testing.T) {
	if pt := NewPlayTime(4.5); !pt.Valid || pt.Seconds != 4.5 || !pt.Usable() {
		t.Errorf("NewPlayTime(4.5) = %+v", pt)
	}
	for _, bad := range []float64{0, -1, math.Inf(-1), math.NaN()} {
		if pt := NewPlayTime(bad); pt.Valid || pt.Usable() {
			t.Errorf("NewPlayTime(%v) = %+v", bad, pt)
		}
	}
}

func TestHashDateToSeed(t *testing.T) {
	a := HashDateToSeed("2026-03-14")
	if a != HashDateToSeed("2026-03-14") {
		t.Error("seed not deterministic")
	}
	if a == HashDateToSeed("2026-03-15") {
		t.Error("adjacent dates share a seed")
	}
	if a < 0 || a >= 1_000_000_000 {
		t.Errorf("seed %d out of range", a)
	}
	if HashDateToSeed("") != 0 {
		t.Error("empty date seed not zero")
	}
}

func TestTargetsProjectKeyAndReward(t *testing.T) {
	obj := &CelestialObject{ID: 42, NasaID: "PIA1", RewardStars: 4, Sector: &Sector{RequiredStars: 15}}
	ct := NewCatalogTarget(obj)
	if ct.Key() != (TargetKey{TargetID: "object:42", PuzzleType: DefaultPuzzleType}) {
		t.Errorf("catalog key = %+v", ct.Key())
	}
	if ct.Reward() != (Reward{Stars: 4}) || ct.RequiredStars() != 15 {
		t.Errorf("catalog reward %+v gate %d", ct.Reward(), ct.RequiredStars())
	}

	dt := DailyTarget{Apod: &Apod{Date: "2026-03-14", PuzzleType: "jigsaw"}}
	if dt.Key().TargetID != "apod:2026-03-14" || dt.RequiredStars() != 0 {
		t.Errorf("daily key = %+v", dt.Key())
	}
	if dt.Reward() != (Reward{Parts: 1}) {
		t.Errorf("daily reward = %+v", dt.Reward())
	}

	var rec GameRecord
	dt.Attach(&rec)
	if rec.TargetKind != KindDaily || rec.ApodDate == nil || rec.CelestialObjectID != nil {
		t.Errorf("attached record = %+v", rec)
	}

	if Unlocked(&User{Stars: 14}, ct) || !Unlocked(&User{Stars: 15}, ct) {
		t.Error("gate boundary wrong")
	}
	if !Unlocked(&User{}, dt) {
		t.Error("daily target gated")
	}
}

func TestRewardArithmetic(t *testing.T) {
	r := Reward{Stars: 1}.Add(Reward{Credits: 2, Parts: 3})
	if r != (Reward{Stars: 1, Credits: 2, Parts: 3}) {
		t.Errorf("sum = %+v", r)
	}
	if !(Reward{}).IsZero() || r.IsZero() {
		t.Error("IsZero wrong")
	}
}
