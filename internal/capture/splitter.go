// Package capture turns raw text extracted from the reporting application
// into per-accession study candidates.
package capture

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

// Accession numbers are alphanumeric tokens containing at least one digit,
// optionally with embedded hyphens. Delimiters between multiple accessions
// vary by reporting system (commas, semicolons, pipes, whitespace).
var (
	accessionDelimiter = regexp.MustCompile(`[,;|\s]+`)
	accessionToken     = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

// Study is one accession paired with its procedure text and the slice of
// the capture window attributed to it.
type Study struct {
	StartTime       time.Time
	EndTime         time.Time
	AccessionNumber string
	ProcedureText   string
}

// Duration returns the window slice attributed to this study.
func (s *Study) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Splitter separates multi-accession captures into one study per accession.
type Splitter struct {
	policy model.SplitPolicy
}

// NewSplitter creates a splitter with the given duration apportionment policy.
func NewSplitter(policy model.SplitPolicy) *Splitter {
	return &Splitter{policy: policy}
}

// Split extracts every accession number from the capture and pairs each with
// procedure text and a portion of the window ending at the capture time.
// The number of returned studies always equals the number of accessions
// found; none are lost or duplicated. windowStart is the end of the previous
// recorded study (already bounded by the idle cap by the caller).
func (s *Splitter) Split(cap model.RawCapture, windowStart time.Time) ([]Study, error) {
	accessions, err := ParseAccessions(cap.AccessionText)
	if err != nil {
		return nil, err
	}

	texts := perAccessionTexts(cap.ProcedureText, len(accessions))

	if windowStart.After(cap.CaptureTime) {
		windowStart = cap.CaptureTime
	}
	window := cap.CaptureTime.Sub(windowStart)

	studies := make([]Study, len(accessions))
	cursor := windowStart
	for i, accession := range accessions {
		share := s.share(window, i, len(accessions))
		end := cursor.Add(share)
		if i == len(accessions)-1 {
			// Absorb division remainder so shares sum to the window exactly.
			end = cap.CaptureTime
		}
		studies[i] = Study{
			AccessionNumber: accession,
			ProcedureText:   texts[i],
			StartTime:       cursor,
			EndTime:         end,
		}
		cursor = end
	}

	return studies, nil
}

// share returns the window slice for the i-th of n accessions.
func (s *Splitter) share(window time.Duration, i, n int) time.Duration {
	if s.policy == model.SplitTerminal {
		if i == n-1 {
			return window
		}
		return 0
	}
	return window / time.Duration(n)
}

// ParseAccessions extracts the accession numbers from delimited accession
// text, preserving their order. It fails with ErrMalformedAccession when the
// text is empty or contains a token that cannot be an accession number.
func ParseAccessions(accessionText string) ([]string, error) {
	trimmed := strings.TrimSpace(accessionText)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty accession text", common.ErrMalformedAccession)
	}

	var accessions []string
	for _, token := range accessionDelimiter.Split(trimmed, -1) {
		if token == "" {
			continue
		}
		if !accessionToken.MatchString(token) || !strings.ContainsAny(token, "0123456789") {
			return nil, fmt.Errorf("%w: %q", common.ErrMalformedAccession, token)
		}
		accessions = append(accessions, token)
	}
	if len(accessions) == 0 {
		return nil, fmt.Errorf("%w: no accession numbers in %q", common.ErrMalformedAccession, accessionText)
	}
	return accessions, nil
}

// perAccessionTexts pairs procedure text with each accession. When the text
// has exactly one line per accession the lines are paired positionally;
// otherwise every accession shares the full text.
func perAccessionTexts(procedureText string, n int) []string {
	var lines []string
	for _, line := range strings.Split(procedureText, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	texts := make([]string, n)
	if len(lines) == n {
		copy(texts, lines)
		return texts
	}
	shared := strings.TrimSpace(procedureText)
	for i := range texts {
		texts[i] = shared
	}
	return texts
}
