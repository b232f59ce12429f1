package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the budget command.
func (c *BudgetCmd) Run(deps *Dependencies) error {
	b := deps.Budget.CurrentBudget()

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	t := table.NewWriter()
	t.SetOutputMirror(deps.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Logical cores", "CPU", "Memory available", "Memory used", "Max parallel ops"})
	t.AppendRow(table.Row{
		b.Sample.LogicalCores,
		fmt.Sprintf("%.1f%%", b.Sample.CPUPercent),
		fmt.Sprintf("%.1f GiB", float64(b.Sample.MemAvailable)/(1<<30)),
		fmt.Sprintf("%.1f%%", b.Sample.MemUsedPercent),
		b.MaxParallelOps,
	})
	t.Render()
	return nil
}
