package main

import (
	"fmt"

	"github.com/fwojciec/websift"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	resp, err := deps.Searcher.Search(deps.Ctx, c.Query, c.Count)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websift.ErrorMessage(err))
		return err
	}
	return finish(deps, c.RaceFlags, resp)
}

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	candidates := make([]websift.CandidateURL, len(c.URLs))
	for i, u := range c.URLs {
		candidates[i] = websift.CandidateURL{URL: u, Query: c.Query, Position: i}
	}
	count := c.Count
	if count <= 0 {
		count = len(candidates)
	}

	resp, err := deps.Searcher.Extract(deps.Ctx, candidates, count)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websift.ErrorMessage(err))
		return err
	}
	return finish(deps, c.RaceFlags, resp)
}
