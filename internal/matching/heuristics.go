package matching

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/animelink/internal/domain"
)

var (
	movieRE = regexp.MustCompile(`(?i)\b(?:movies?|films?|gekijou?ban|gekijo-ban)\b|infinity castle|mugen train`)
	ovaRE   = regexp.MustCompile(`(?i)\b(?:ova|ovas|specials?|ona|extras?)\b`)

	// seasonTitleRE is the broad sequel signal used for the movie penalty.
	seasonTitleRE = regexp.MustCompile(`(?i)\b(?:season|part|series|cour|2nd|3rd|\d+th|ii|iii|iv)\b`)

	// Season markers on a candidate title.
	numberedSeasonRE = regexp.MustCompile(`(?i)\b(?:season|part|series|cour)\s*(?:\d+|ii|iii|iv|v|\d+(?:st|nd|rd|th))\b`)
	ordinalSeasonRE  = regexp.MustCompile(`(?i)\b\d+(?:st|nd|rd|th)\s+(?:season|part|cour)\b`)
	romanRE          = regexp.MustCompile(`(?i)\b(ii|iii|iv|v)\b`)

	// Looser hints on the query title.
	seasonWordRE = regexp.MustCompile(`(?i)\b(?:season|part|series|cour)\b`)
	ordinalRE    = regexp.MustCompile(`(?i)\b\d+(?:nd|rd|th)\b`)

	seasonNumberRE = regexp.MustCompile(`(?i)season\s*(\d+)|(\d+)(?:st|nd|rd|th)\s*season`)
	yearRE         = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var romanValues = map[string]int{"ii": 2, "iii": 3, "iv": 4, "v": 5}

// IsMovieTitle reports whether the title carries theatrical markers.
func IsMovieTitle(title string) bool { return movieRE.MatchString(title) }

// IsOVATitle reports whether the title carries OVA/special/ONA/extra markers.
func IsOVATitle(title string) bool { return ovaRE.MatchString(title) }

// IsSeasonTitle reports whether the title looks like a sequel or later season.
func IsSeasonTitle(title string) bool { return seasonTitleRE.MatchString(title) }

// HasSeasonMarker reports whether a candidate title names a specific season,
// part or cour.
func HasSeasonMarker(title string) bool {
	return numberedSeasonRE.MatchString(title) ||
		ordinalSeasonRE.MatchString(title) ||
		romanRE.MatchString(title)
}

func hasSeasonHint(title string) bool {
	return seasonWordRE.MatchString(title) || ordinalRE.MatchString(title) || romanRE.MatchString(title)
}

// TypeMatch checks the candidate's display title against the expected format.
func TypeMatch(displayTitle string, expected domain.ContentType) bool {
	switch expected {
	case domain.TypeMovie:
		return IsMovieTitle(displayTitle)
	case domain.TypeTV:
		return !IsMovieTitle(displayTitle) && !IsOVATitle(displayTitle)
	case domain.TypeOVA, domain.TypeSpecial, domain.TypeONA:
		return IsOVATitle(displayTitle)
	}
	return false
}

// YearMatch extracts the first 4-digit year in 1900-2099 and accepts it within
// one year of expectedYear. A zero expectedYear or a title without a year is
// a non-match.
func YearMatch(displayTitle string, expectedYear int) bool {
	if expectedYear <= 0 {
		return false
	}
	tok := yearRE.FindString(displayTitle)
	if tok == "" {
		return false
	}
	year, err := strconv.Atoi(tok)
	if err != nil {
		return false
	}
	return math.Abs(float64(year-expectedYear)) <= 1
}

// SeasonMatch guards against picking a sequel. When expectedSeason is a
// number it is compared to the candidate's season number. Otherwise a
// candidate carrying a season marker is rejected unless the original query
// title carried one too.
func SeasonMatch(displayTitle, expectedSeason, originalTitle string) bool {
	expectedSeason = strings.TrimSpace(expectedSeason)
	if expectedSeason == "" && strings.TrimSpace(originalTitle) == "" {
		return false
	}
	if want, err := strconv.Atoi(expectedSeason); err == nil && want > 0 {
		got, ok := ExtractSeasonNumber(displayTitle)
		if !ok {
			return want == 1 && !HasSeasonMarker(displayTitle)
		}
		return got == want
	}
	if !hasSeasonHint(originalTitle) && HasSeasonMarker(displayTitle) {
		return false
	}
	return true
}

// DetectType guesses the format from a title alone.
func DetectType(title string) domain.ContentType {
	switch {
	case IsMovieTitle(title):
		return domain.TypeMovie
	case IsOVATitle(title):
		return domain.TypeOVA
	case IsSeasonTitle(title):
		return domain.TypeTV
	}
	return ""
}

// ExtractSeasonNumber reads "Season N", "Nth Season" or a standalone roman
// numeral ii-v.
func ExtractSeasonNumber(title string) (int, bool) {
	if m := seasonNumberRE.FindStringSubmatch(title); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(raw); err == nil {
			return n, true
		}
	}
	if m := romanRE.FindStringSubmatch(title); m != nil {
		n, ok := romanValues[strings.ToLower(m[1])]
		return n, ok
	}
	return 0, false
}
