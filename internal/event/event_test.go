package event

import (
	"errors"
	"testing"
	"time"
)

func TestParseCode_Valid(t *testing.T) {
	ev, err := ParseCode("HB-FOOTBALL-20250906-UW-OSU")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.Sport != SportFootball {
		t.Errorf("expected sport FOOTBALL, got %s", ev.Sport)
	}
	if ev.HomeTeam != "UW" || ev.AwayTeam != "OSU" {
		t.Errorf("expected UW vs OSU, got %s vs %s", ev.HomeTeam, ev.AwayTeam)
	}
	want := time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)
	if !ev.GameDate.Equal(want) {
		t.Errorf("expected game date %s, got %s", want, ev.GameDate)
	}
}

func TestParseCode_NumericTeamCodes(t *testing.T) {
	if _, err := ParseCode("HB-BASKETBALL-20251101-TEAM1-TEAM2"); err != nil {
		t.Errorf("alphanumeric team codes should parse: %v", err)
	}
}

func TestParseCode_InvalidFormat(t *testing.T) {
	cases := []string{
		"",
		"FOOTBALL-20250906-UW-OSU",      // missing prefix
		"HB-FOOTBALL-2025096-UW-OSU",    // short date
		"HB-FOOTBALL-20250906-UW",       // missing away team
		"hb-football-20250906-uw-osu",   // lowercase
		"HB-FOOTBALL-20250906-UW-OSU-X", // trailing segment
	}

	for _, code := range cases {
		if _, err := ParseCode(code); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("ParseCode(%q): expected ErrInvalidCode, got %v", code, err)
		}
	}
}

func TestParseCode_UnsupportedSport(t *testing.T) {
	_, err := ParseCode("HB-CURLING-20250906-UW-OSU")
	if !errors.Is(err, ErrInvalidSport) {
		t.Errorf("expected ErrInvalidSport, got %v", err)
	}
}

func TestParseCode_SameTeam(t *testing.T) {
	_, err := ParseCode("HB-SOCCER-20250906-UW-UW")
	if !errors.Is(err, ErrSameTeam) {
		t.Errorf("expected ErrSameTeam, got %v", err)
	}
}

func TestParseCode_BadDate(t *testing.T) {
	_, err := ParseCode("HB-FOOTBALL-20251399-UW-OSU")
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode for impossible date, got %v", err)
	}
}
