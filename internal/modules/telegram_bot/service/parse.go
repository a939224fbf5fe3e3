package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"

	"github.com/pkg/errors"
)

var (
	tickerRe    = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)
	thousandsRe = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

	errRowFormat = errors.New("expected: TICKER call1 call2 put1 put2 YYYY-MM-DD")
)

// parseRow reads "TICKER call1 call2 put1 put2 YYYY-MM-DD". Fields may be
// separated by spaces, semicolons or tabs.
func parseRow(text string) (models.PositionInput, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t' || r == '\n'
	})
	if len(fields) != 6 {
		return models.PositionInput{}, errRowFormat
	}

	ticker := models.NormTicker(fields[0])
	if !tickerRe.MatchString(ticker) {
		return models.PositionInput{}, errors.Errorf("bad ticker %q", fields[0])
	}

	var be [4]float64
	names := [4]string{"call1", "call2", "put1", "put2"}
	for i := range be {
		v, err := parseNumber(fields[i+1])
		if err != nil {
			return models.PositionInput{}, errors.Wrapf(err, "%s", names[i])
		}
		be[i] = v
	}

	expiry, err := time.Parse(config.HistoryDateLayout, fields[5])
	if err != nil {
		return models.PositionInput{}, errors.Errorf("bad expiry %q, want YYYY-MM-DD", fields[5])
	}

	return models.PositionInput{
		Ticker:  ticker,
		Call1BE: be[0],
		Call2BE: be[1],
		Put1BE:  be[2],
		Put2BE:  be[3],
		Expiry:  expiry,
	}, nil
}

// parseNumber accepts "12.5", "12,5", "$10,000" and "10 000".
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.NewReplacer(" ", "", "_", "", "\u00a0", "").Replace(s)

	if thousandsRe.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("not a number: %q", s)
	}
	return v, nil
}
