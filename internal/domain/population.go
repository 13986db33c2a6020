package domain

import "fmt"

// Population is an entity class served by the matching engine.
// Resumes and jobs are dual populations: a resume query searches jobs
// and a job query searches resumes.
type Population string

const (
	// PopulationResumes is the candidate resume population.
	PopulationResumes Population = "resumes"
	// PopulationJobs is the job posting population.
	PopulationJobs Population = "jobs"
)

// ParsePopulation validates a population name.
func ParsePopulation(s string) (Population, error) {
	switch Population(s) {
	case PopulationResumes:
		return PopulationResumes, nil
	case PopulationJobs:
		return PopulationJobs, nil
	default:
		return "", fmt.Errorf("%w: unknown population %q", ErrInvalidInput, s)
	}
}

// Opposite returns the dual population: the one a member of this
// population is matched against.
func (p Population) Opposite() Population {
	if p == PopulationResumes {
		return PopulationJobs
	}
	return PopulationResumes
}

// String implements fmt.Stringer.
func (p Population) String() string { return string(p) }
