package normalize

import (
	"sort"

	"golang.org/x/text/cases"
)

// teamCodes maps the full team names used on the site to their short codes.
// Several historical names share a code.
var teamCodes = map[string]string{
	"adelaide":               "ADE",
	"brisbane bears":         "BBR",
	"brisbane lions":         "BRL",
	"carlton":                "CAR",
	"collingwood":            "COL",
	"essendon":               "ESS",
	"fitzroy":                "FIT",
	"fremantle":              "FRE",
	"geelong":                "GEE",
	"gold coast":             "GCS",
	"greater western sydney": "GWS",
	"hawthorn":               "HAW",
	"melbourne":              "MEL",
	"kangaroos":              "NM",
	"north melbourne":        "NM",
	"port adelaide":          "PA",
	"richmond":               "RIC",
	"st kilda":               "STK",
	"south melbourne":        "SOU",
	"footscray":              "FOO",
	"sydney":                 "SYD",
	"university":             "UNI",
	"west coast":             "WCE",
	"western bulldogs":       "WB",
}

var foldedTeamCodes = func() map[string]string {
	folded := make(map[string]string, len(teamCodes))
	for name, code := range teamCodes {
		folded[fold(name)] = code
	}
	return folded
}()

// fold applies Unicode case folding. Casers hold state, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(collapse(s))
}

// TeamCode resolves a team name to its code, ignoring case and spacing.
func TeamCode(name string) (string, error) {
	if code, ok := foldedTeamCodes[fold(name)]; ok {
		return code, nil
	}
	return "", &UnknownTeamError{Name: name}
}

// TeamNames returns the known team names, sorted.
func TeamNames() []string {
	names := make([]string, 0, len(teamCodes))
	for name := range teamCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
