package mentor

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

// Prompter builds prompts for the text generation service
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

// Section labels the review prompts ask for
const (
	SectionCongratulations    = "🎉 CONGRATULATIONS"
	SectionQuickAssessment    = "QUICK ASSESSMENT"
	SectionAcknowledgeEffort  = "ACKNOWLEDGE THEIR EFFORT"
	SectionImprovedSolution   = "IMPROVED SOLUTION"
	SectionLineByLineFixes    = "LINE-BY-LINE FIXES"
	SectionLineByLineLearning = "LINE-BY-LINE LEARNING"
	SectionKeyTakeaway        = "KEY TAKEAWAY"
	SectionNextChallenge      = "NEXT CHALLENGE"
)

const (
	pythonicPatternsLearned     = "PYTHONIC PATTERNS LEARNED"
	conciseWordLimit            = 400
	maxConciseFixes             = 5
	starterMaxLines             = 15
	openerWorks                 = "Their code works correctly! Start with congratulations."
	openerWorksDetailed         = "Their code works correctly! Start with congratulations before suggesting improvements."
	openerBroken                = "Their code has issues that need fixing."
	reviewPersona               = "You are CodeMentor, an expert programming educator."
	assessmentJSONOnlyDirective = "Respond ONLY with valid JSON, no markdown formatting."
)

// IdiomsSection returns the heading of the idioms section for a language
func IdiomsSection(lang domain.Language) string {
	if lang == "" || lang == "python" {
		return pythonicPatternsLearned
	}
	return strings.ToUpper(lang.DisplayName()) + " IDIOMS LEARNED"
}

func codeBlock(sb *strings.Builder, lang domain.Language, code string) {
	fmt.Fprintf(sb, "```%s\n%s\n```\n", lang.Fence(), code)
}

// AssessmentPrompt asks for a JSON skill assessment of one attempt
func (p *Prompter) AssessmentPrompt(task, code string, lang domain.Language) string {
	var sb strings.Builder
	name := lang.DisplayName()

	sb.WriteString("Analyze this code attempt and assess the programmer's skill level.\n\n")
	fmt.Fprintf(&sb, "Task Description: %s\n\n", task)
	sb.WriteString("User's Code Attempt:\n")
	codeBlock(&sb, lang, code)

	sb.WriteString(`
Provide a JSON response with:
1. "level": one of "beginner", "intermediate", or "advanced"
2. "code_works": boolean - true if the code would work correctly for the task (may have minor issues but fundamentally solves it), false if it has bugs or wouldn't work
3. "code_issues": if code_works is false, list 1-3 specific issues that would prevent it from working
4. "indicators": list of 3-5 specific observations that informed your assessment
5. "strengths": list of 2-3 things they did well (even if basic)
6. "growth_areas": list of 2-3 specific areas for improvement

Consider:
- Code structure and organization
`)
	fmt.Fprintf(&sb, "- Use of %s idioms and conventions\n", name)
	sb.WriteString(`- Error handling awareness
- Efficiency considerations
- Naming conventions and readability

`)
	sb.WriteString(assessmentJSONOnlyDirective)

	return sb.String()
}

// ReviewPromptRequest carries everything the review prompt depends on
type ReviewPromptRequest struct {
	Task      string
	Code      string
	Level     domain.SkillLevel
	Mode      domain.FeedbackMode
	CodeWorks bool
	Language  domain.Language
}

// ReviewPrompt selects the concise or detailed review template
func (p *Prompter) ReviewPrompt(req ReviewPromptRequest) string {
	if req.Mode == domain.FeedbackConcise {
		return p.conciseReviewPrompt(req)
	}
	return p.detailedReviewPrompt(req)
}

func (p *Prompter) reviewHeader(sb *strings.Builder, req ReviewPromptRequest) {
	fmt.Fprintf(sb, "%s A %s-level programmer has asked you to help them understand code generation.\n\n",
		reviewPersona, req.Level)
	fmt.Fprintf(sb, "Their request: \"%s\"\n\n", req.Task)
	sb.WriteString("Their attempt:\n")
	codeBlock(sb, req.Language, req.Code)
	sb.WriteString("\n")
}

func (p *Prompter) conciseReviewPrompt(req ReviewPromptRequest) string {
	var sb strings.Builder
	name := req.Language.DisplayName()

	p.reviewHeader(&sb, req)

	opener, openerHint := SectionQuickAssessment, "Briefly note the main issue."
	if req.CodeWorks {
		sb.WriteString(openerWorks)
		opener, openerHint = SectionCongratulations, "Congratulate them - their code works! Note it can still be improved."
	} else {
		sb.WriteString(openerBroken)
	}
	sb.WriteString("\n\nProvide a CONCISE code review with:\n\n")

	fmt.Fprintf(&sb, "1. **%s** (1-2 sentences)\n   %s\n\n", opener, openerHint)
	fmt.Fprintf(&sb, "2. **%s**\n   Provide a clean, improved %s solution with brief inline comments.\n\n", SectionImprovedSolution, name)
	fmt.Fprintf(&sb, "3. **%s** (bullet points, max %d)\n", SectionLineByLineFixes, maxConciseFixes)
	sb.WriteString("   For each issue or improvement:\n")
	sb.WriteString("   - `their code` → `improved code`: One sentence explanation\n\n")
	sb.WriteString("   Focus on the most important changes. Be direct and brief.\n\n")
	fmt.Fprintf(&sb, "4. **%s** (1 sentence)\n   The single most important lesson from this review.\n\n", SectionKeyTakeaway)
	fmt.Fprintf(&sb, "Keep the entire response under %d words. Be direct, no fluff.", conciseWordLimit)

	return sb.String()
}

func (p *Prompter) detailedReviewPrompt(req ReviewPromptRequest) string {
	var sb strings.Builder
	name := req.Language.DisplayName()

	p.reviewHeader(&sb, req)

	opener := SectionAcknowledgeEffort
	openerHint := "Recognize what they tried to do and point out something specific they did reasonably well."
	if req.CodeWorks {
		sb.WriteString(openerWorksDetailed)
		opener = SectionCongratulations + "!"
		openerHint = "Congratulate them warmly - their code works! Then mention you'll show some refinements."
	} else {
		sb.WriteString(openerBroken)
	}
	sb.WriteString("\n\nProvide a comprehensive, educational response that:\n\n")

	fmt.Fprintf(&sb, "1. **%s** (2-3 sentences)\n   %s\n\n", opener, openerHint)

	fmt.Fprintf(&sb, "2. **%s**\n", SectionImprovedSolution)
	fmt.Fprintf(&sb, "   - Provide a well-crafted %s solution\n", name)
	sb.WriteString("   - Include helpful comments explaining key decisions\n")
	fmt.Fprintf(&sb, "   - Match complexity to their %s level\n\n", req.Level)

	fmt.Fprintf(&sb, "3. **%s** (for 3-5 key improvements)\n", SectionLineByLineLearning)
	sb.WriteString(`   For each improvement, explain:
   - WHAT changed (be specific about the code)
   - WHY it's better (the reasoning)
   - THE TRADEOFF between readability and performance

   Use this format for each:

   **Improvement: [Name of the improvement]**

   *Your code:* ` + "`[their specific code snippet]`" + `

   *Improved:* ` + "`[the improved version]`" + `

   *Why this is better:*
   [Explanation tailored to their level]

   *Readability vs Performance:*
   - 📖 Readability: [Score 1-5 stars] - [Brief explanation]
   - ⚡ Performance: [Score 1-5 stars] - [Brief explanation]
   - 🎯 Recommendation: [Which to prioritize for this case and why]

`)

	fmt.Fprintf(&sb, "4. **%s**\n", IdiomsSection(req.Language))
	fmt.Fprintf(&sb, "   List 2-3 %s idioms or patterns demonstrated, with simple explanations\n\n", name)

	fmt.Fprintf(&sb, "5. **%s**\n", SectionNextChallenge)
	sb.WriteString("   Suggest one way they could extend or improve this code to practice further\n\n")

	fmt.Fprintf(&sb, "Tailor your language to a %s programmer:\n", req.Level)
	sb.WriteString(`- Beginner: Use analogies, avoid jargon, be encouraging
- Intermediate: Balance explanation with efficiency, introduce best practices
- Advanced: Focus on nuances, edge cases, and optimization strategies

Be warm, encouraging, and genuinely helpful. Use emojis sparingly for visual breaks.`)

	return sb.String()
}

// StarterPrompt asks for an intentionally incomplete skeleton
func (p *Prompter) StarterPrompt(task string, lang domain.Language) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Given this coding task: \"%s\"\n\n", task)
	fmt.Fprintf(&sb, "Generate a minimal %s code SKELETON that:\n", lang.DisplayName())
	sb.WriteString(`1. Has the basic structure (function definition, main variables)
2. Includes TODO comments showing what needs to be implemented
3. Is intentionally incomplete - the user needs to fill in the logic
4. Uses descriptive placeholder variable names

The goal is to give them a starting point without solving it for them.

`)
	fmt.Fprintf(&sb, "Return ONLY the code, no explanations. Keep it under %d lines.", starterMaxLines)

	return sb.String()
}

// ReviewSections lists the section labels a review of the given shape should contain
func ReviewSections(mode domain.FeedbackMode, codeWorks bool, lang domain.Language) []string {
	if mode == domain.FeedbackConcise {
		opener := SectionQuickAssessment
		if codeWorks {
			opener = SectionCongratulations
		}
		return []string{opener, SectionImprovedSolution, SectionLineByLineFixes, SectionKeyTakeaway}
	}

	opener := SectionAcknowledgeEffort
	if codeWorks {
		opener = SectionCongratulations
	}
	return []string{opener, SectionImprovedSolution, SectionLineByLineLearning, IdiomsSection(lang), SectionNextChallenge}
}

// MissingSections reports which expected labels do not appear in review.
// Matching ignores case.
func MissingSections(review string, mode domain.FeedbackMode, codeWorks bool, lang domain.Language) []string {
	upper := strings.ToUpper(review)
	var missing []string
	for _, label := range ReviewSections(mode, codeWorks, lang) {
		if !strings.Contains(upper, strings.ToUpper(label)) {
			missing = append(missing, label)
		}
	}
	return missing
}
