package aggregator

import "github.com/matchdex/matchdex/internal/domain/query"

// suggestions returns follow-up prompts appropriate for the intent and
// role, shown to the caller alongside the answer.
func suggestions(intent query.Intent, role query.Role) []string {
	switch intent {
	case query.IntentMatch:
		if role == query.RoleEmployer {
			return []string{
				"Show me more about the top candidate",
				"Filter by specific skills",
				"What does the talent pool look like?",
			}
		}
		return []string{
			"Tell me more about the first match",
			"What skills should I improve?",
			"Show me remote opportunities",
		}
	case query.IntentCrossMatch:
		return []string{
			"Compare against another posting",
			"Broaden the match with a higher k",
			"Show insights for both markets",
		}
	case query.IntentAnalytics:
		if role == query.RoleEmployer {
			return []string{
				"Find candidates with specific skills",
				"Post a job for entry-level candidates",
				"View market salary trends",
			}
		}
		return []string{
			"Find jobs requiring these skills",
			"Show me learning resources",
			"Analyze my current skills",
		}
	}
	return nil
}
