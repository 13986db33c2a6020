package aggregator

import (
	"regexp"
	"strings"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/query"
)

// sourceCall is one planned facade invocation.
type sourceCall struct {
	population domain.Population
	kind       query.SourceKind
}

// plan is a classified query: the intent plus the facade calls that serve it.
type plan struct {
	intent query.Intent
	calls  []sourceCall
}

var (
	reCross     = regexp.MustCompile(`(?i)\bcompare\b|\bagainst\b|\bversus\b|\bvs\b|\bfit\b`)
	reAnalytics = regexp.MustCompile(`(?i)insight|trend|market|stat|popular|demand|how\s+many|count`)
	reSkillTalk = regexp.MustCompile(`(?i)skill|talent|expertise|\bgap\b|missing|improve`)
	reJobWords  = regexp.MustCompile(`(?i)\bjobs?\b|position|\broles?\b|opening|opportunit|vacanc`)
	reCandWords = regexp.MustCompile(`(?i)candidate|applicant|resume|\bcv\b|profile|hire`)
	reMatchVerb = regexp.MustCompile(`(?i)\bbest\b|\btop\b|recommend|suitable|\bfind\b|match|search|looking\s+for|show\s+me`)
)

// classify plans the facade calls for a query. Precedence: cross-match
// markers with a subject text beat analytics, analytics beat a
// single-population match. The role hint picks the dual population: a
// job seeker matches against jobs, an employer against resumes.
func classify(queryText string, rc query.RequesterContext) plan {
	s := strings.TrimSpace(queryText)
	if s == "" {
		return plan{intent: query.IntentUnsupported}
	}

	hasSubject := strings.TrimSpace(rc.SubjectText) != ""

	if reCross.MatchString(s) && hasSubject {
		return plan{intent: query.IntentCrossMatch, calls: bothMatches()}
	}

	if reAnalytics.MatchString(s) || reSkillTalk.MatchString(s) {
		return plan{intent: query.IntentAnalytics, calls: analyticsCalls(s, rc.Role)}
	}

	if reMatchVerb.MatchString(s) {
		if pop, ok := matchTarget(s, rc.Role); ok {
			return plan{
				intent: query.IntentMatch,
				calls:  []sourceCall{{population: pop, kind: query.SourceMatch}},
			}
		}
		// Обе стороны рынка в одном запросе: без роли это сравнение,
		// если есть текст-предмет.
		if reJobWords.MatchString(s) && reCandWords.MatchString(s) && hasSubject {
			return plan{intent: query.IntentCrossMatch, calls: bothMatches()}
		}
	}

	return plan{intent: query.IntentUnsupported}
}

// matchTarget resolves which population a match query runs against. A
// known role requires its own vocabulary to be present; without a role
// hint exactly one side's vocabulary must match.
func matchTarget(s string, role query.Role) (domain.Population, bool) {
	jobs := reJobWords.MatchString(s)
	cands := reCandWords.MatchString(s)

	switch role {
	case query.RoleJobSeeker:
		if jobs {
			return domain.PopulationJobs, true
		}
	case query.RoleEmployer:
		if cands {
			return domain.PopulationResumes, true
		}
	default:
		if jobs && !cands {
			return domain.PopulationJobs, true
		}
		if cands && !jobs {
			return domain.PopulationResumes, true
		}
	}
	return "", false
}

// analyticsCalls picks the analytics sources. Skill questions from a
// job seeker cover both sides of the market (demand and supply);
// employers get the talent pool; without a role hint both populations
// are summarized.
func analyticsCalls(s string, role query.Role) []sourceCall {
	switch role {
	case query.RoleJobSeeker:
		if reSkillTalk.MatchString(s) {
			return bothAnalytics()
		}
		return []sourceCall{{population: domain.PopulationJobs, kind: query.SourceAnalytics}}
	case query.RoleEmployer:
		return []sourceCall{{population: domain.PopulationResumes, kind: query.SourceAnalytics}}
	}
	return bothAnalytics()
}

func bothMatches() []sourceCall {
	return []sourceCall{
		{population: domain.PopulationResumes, kind: query.SourceMatch},
		{population: domain.PopulationJobs, kind: query.SourceMatch},
	}
}

func bothAnalytics() []sourceCall {
	return []sourceCall{
		{population: domain.PopulationResumes, kind: query.SourceAnalytics},
		{population: domain.PopulationJobs, kind: query.SourceAnalytics},
	}
}
