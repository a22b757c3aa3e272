// Package event handles external event-code parsing and validation for
// market creation. The sports-data feed keys every contest by a code of the
// form HB-{SPORT}-{YYYYMMDD}-{HOME}-{AWAY}.
package event

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Supported sports.
const (
	SportFootball   = "FOOTBALL"
	SportBasketball = "BASKETBALL"
	SportBaseball   = "BASEBALL"
	SportSoccer     = "SOCCER"
	SportVolleyball = "VOLLEYBALL"
)

var validSports = map[string]bool{
	SportFootball:   true,
	SportBasketball: true,
	SportBaseball:   true,
	SportSoccer:     true,
	SportVolleyball: true,
}

// codeRegex matches: HB-{SPORT}-{YYYYMMDD}-{HOME}-{AWAY}
// Example: HB-FOOTBALL-20250906-UW-OSU
var codeRegex = regexp.MustCompile(
	`^HB-([A-Z]+)-(\d{8})-([A-Z0-9]+)-([A-Z0-9]+)$`,
)

var (
	ErrInvalidCode  = errors.New("event: invalid event code format")
	ErrInvalidSport = errors.New("event: unsupported sport")
	ErrSameTeam     = errors.New("event: home and away teams must differ")
)

// Event is a parsed contest identifier from the sports-data feed.
type Event struct {
	Code     string    `json:"code"`
	Sport    string    `json:"sport"`
	GameDate time.Time `json:"game_date"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
}

// ParseCode parses and validates an event code string.
// Format: HB-{SPORT}-{YYYYMMDD}-{HOME}-{AWAY}
func ParseCode(code string) (*Event, error) {
	matches := codeRegex.FindStringSubmatch(strings.TrimSpace(code))
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected HB-{sport}-{YYYYMMDD}-{home}-{away})",
			ErrInvalidCode, code)
	}

	sport := matches[1]
	dateStr := matches[2]
	home := matches[3]
	away := matches[4]

	if !validSports[sport] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSport, sport)
	}
	if home == away {
		return nil, fmt.Errorf("%w: %s", ErrSameTeam, code)
	}

	gameDate, err := time.Parse("20060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidCode, dateStr)
	}

	return &Event{
		Code:     code,
		Sport:    sport,
		GameDate: gameDate,
		HomeTeam: home,
		AwayTeam: away,
	}, nil
}
