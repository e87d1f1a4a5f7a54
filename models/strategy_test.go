package models

import (
	"encoding/json"
	"testing"
)

func TestParseFamilyRoundTrip(t *testing.T) {
	for f := Family(0); f < FamilyCount; f++ {
		got, err := ParseFamily(f.String())
		if err != nil {
			t.Fatalf("ParseFamily(%q): %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFamily(%q) = %v, want %v", f.String(), got, f)
		}
	}

	if _, err := ParseFamily("martingale"); err == nil {
		t.Error("unknown family must be rejected")
	}
}

func TestDecodeParamsRoundTrip(t *testing.T) {
	params := []Params{
		EMACrossParams{FastPeriod: 9, SlowPeriod: 50, ConfirmationBars: 2},
		RSIReversalParams{Period: 14, Oversold: 30, Overbought: 70},
		MACDCrossParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		BollingerParams{Period: 20, StdDev: 2.0},
		IchimokuParams{Tenkan: 9, Kijun: 26, Senkou: 52},
		SupportResistanceParams{Lookback: 30},
		VolumeBreakoutParams{Period: 20, Multiplier: 2.0},
		ATRRangeParams{Period: 14, Multiplier: 2.0},
	}

	for _, p := range params {
		encoded, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		decoded, err := DecodeParams(p.Kind(), encoded)
		if err != nil {
			t.Fatalf("DecodeParams(%v): %v", p.Kind(), err)
		}
		if decoded != p {
			t.Errorf("round trip changed %v params: %+v != %+v", p.Kind(), decoded, p)
		}
	}
}

func TestDecodeParamsMultiIndicator(t *testing.T) {
	p := MultiIndicatorParams{
		Constituents: []Family{FamilyEMACross, FamilyRSIReversal},
		EMAPeriod:    20,
		RSIPeriod:    14,
		Required:     1,
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeParams(FamilyMultiIndicator, encoded)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := decoded.(MultiIndicatorParams)
	if !ok {
		t.Fatalf("decoded to %T, want value type", decoded)
	}
	if len(got.Constituents) != 2 || got.Required != 1 {
		t.Errorf("round trip changed composite params: %+v", got)
	}
}

func TestDirectionOpposite(t *testing.T) {
	if DirectionBuy.Opposite() != DirectionSell || DirectionSell.Opposite() != DirectionBuy {
		t.Error("buy and sell must mirror each other")
	}
	if DirectionNone.Opposite() != DirectionNone {
		t.Error("none has no opposite")
	}
}

func TestParseSession(t *testing.T) {
	for _, s := range []Session{SessionAny, SessionLondon, SessionNY, SessionBoth} {
		if got := ParseSession(s.String()); got != s {
			t.Errorf("ParseSession(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if got := ParseSession("tokyo"); got != SessionAny {
		t.Errorf("unknown session = %v, want the Any fallback", got)
	}
}
