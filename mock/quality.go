package mock

import "github.com/fwojciec/websift"

var _ websift.QualityAssessor = (*QualityAssessor)(nil)

// QualityAssessor is a mock implementation of websift.QualityAssessor.
type QualityAssessor struct {
	AssessFn func(url, content, query string) websift.QualityScore
}

func (a *QualityAssessor) Assess(url, content, query string) websift.QualityScore {
	return a.AssessFn(url, content, query)
}
