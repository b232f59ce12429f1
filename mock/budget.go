package mock

import "github.com/fwojciec/websift"

var _ websift.BudgetSource = (*BudgetSource)(nil)

// BudgetSource is a mock implementation of websift.BudgetSource.
type BudgetSource struct {
	CurrentBudgetFn func() websift.ResourceBudget
}

func (b *BudgetSource) CurrentBudget() websift.ResourceBudget {
	return b.CurrentBudgetFn()
}
