package mentor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Assessment
	}{
		{
			name: "conforming object",
			raw:  `{"level":"beginner","code_works":false,"code_issues":["returns None"],"indicators":["a","b","c"],"strengths":["named it"],"growth_areas":["loops"]}`,
			want: domain.Assessment{
				Level:       domain.LevelBeginner,
				CodeWorks:   false,
				CodeIssues:  []string{"returns None"},
				Indicators:  []string{"a", "b", "c"},
				Strengths:   []string{"named it"},
				GrowthAreas: []string{"loops"},
			},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"level\":\"advanced\",\"code_works\":true,\"code_issues\":[],\"indicators\":[\"x\"],\"strengths\":[\"y\"],\"growth_areas\":[\"z\"]}\n```\n",
			want: domain.Assessment{
				Level:       domain.LevelAdvanced,
				CodeWorks:   true,
				CodeIssues:  []string{},
				Indicators:  []string{"x"},
				Strengths:   []string{"y"},
				GrowthAreas: []string{"z"},
			},
		},
		{
			name: "bare fence with surrounding whitespace",
			raw:  "  ```\n{\"level\":\"intermediate\",\"code_works\":true}\n```  ",
			want: domain.Assessment{
				Level:       domain.LevelIntermediate,
				CodeWorks:   true,
				CodeIssues:  []string{},
				Indicators:  []string{},
				Strengths:   []string{},
				GrowthAreas: []string{},
			},
		},
		{
			name: "missing lists default to empty",
			raw:  `{"level":"beginner","code_works":true,"strengths":null}`,
			want: domain.Assessment{
				Level:       domain.LevelBeginner,
				CodeWorks:   true,
				CodeIssues:  []string{},
				Indicators:  []string{},
				Strengths:   []string{},
				GrowthAreas: []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssessment(tt.raw)
			if err != nil {
				t.Fatalf("ParseAssessment() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAssessment() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAssessment_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"prose", "The learner is a beginner."},
		{"array", `["beginner"]`},
		{"missing level", `{"code_works":true}`},
		{"null level", `{"level":null,"code_works":true}`},
		{"unknown level", `{"level":"expert","code_works":true}`},
		{"level wrong case", `{"level":"Beginner","code_works":true}`},
		{"missing code_works", `{"level":"beginner"}`},
		{"code_works as string", `{"level":"beginner","code_works":"yes"}`},
		{"list of numbers", `{"level":"beginner","code_works":true,"indicators":[1,2]}`},
		{"trailing garbage", `{"level":"beginner","code_works":true} and more`},
		{"two objects", `{"level":"beginner","code_works":true}{}`},
		{"truncated", `{"level":"beginner","code_wo`},
		{"unclosed fence", "```json\n{\"level\":\"beginner\",\"code_works\":true}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAssessment(tt.raw)
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Errorf("ParseAssessment(%q) error = %v; want ErrMalformedResponse", tt.raw, err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"```{}```", "```{}```"},
		{"```json\n{}", "```json\n{}"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
