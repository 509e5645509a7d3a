package mentor

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

// rawAssessment distinguishes absent fields from zero values
type rawAssessment struct {
	Level       *string  `json:"level"`
	CodeWorks   *bool    `json:"code_works"`
	CodeIssues  []string `json:"code_issues"`
	Indicators  []string `json:"indicators"`
	Strengths   []string `json:"strengths"`
	GrowthAreas []string `json:"growth_areas"`
}

// ParseAssessment converts the service's raw text into an Assessment.
// Any deviation from the expected shape yields domain.ErrMalformedResponse.
func ParseAssessment(raw string) (domain.Assessment, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return domain.Assessment{}, fmt.Errorf("%w: empty text", domain.ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var ra rawAssessment
	if err := dec.Decode(&ra); err != nil {
		return domain.Assessment{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	// Exactly one JSON value is allowed
	if _, err := dec.Token(); err != io.EOF {
		return domain.Assessment{}, fmt.Errorf("%w: trailing content after JSON object", domain.ErrMalformedResponse)
	}

	if ra.Level == nil {
		return domain.Assessment{}, fmt.Errorf("%w: missing level", domain.ErrMalformedResponse)
	}
	level := domain.SkillLevel(*ra.Level)
	if !level.Valid() {
		return domain.Assessment{}, fmt.Errorf("%w: unknown level %q", domain.ErrMalformedResponse, *ra.Level)
	}
	if ra.CodeWorks == nil {
		return domain.Assessment{}, fmt.Errorf("%w: missing code_works", domain.ErrMalformedResponse)
	}

	return domain.Assessment{
		Level:       level,
		CodeWorks:   *ra.CodeWorks,
		CodeIssues:  orEmpty(ra.CodeIssues),
		Indicators:  orEmpty(ra.Indicators),
		Strengths:   orEmpty(ra.Strengths),
		GrowthAreas: orEmpty(ra.GrowthAreas),
	}, nil
}

// stripCodeFence removes one surrounding ``` or ```json fence
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	body := s[nl+1:]
	body = strings.TrimRightFunc(body, func(r rune) bool { return r == ' ' || r == '\n' || r == '\r' || r == '\t' })
	if !strings.HasSuffix(body, "```") {
		return s
	}
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
