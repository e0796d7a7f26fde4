package app

import (
	"context"
	"errors"
	"fmt"

	"thebridge/app/filter"
	"thebridge/app/filterstate"
	"thebridge/app/query"
)

// outcome converts a recompute into the frontend view, logging failures.
// A run replaced by a newer one is not a failure.
func (a *App) outcome(result *query.QueryResult, err error) (*filterstate.Outcome, error) {
	if errors.Is(err, context.Canceled) {
		a.Log("debug", "Query superseded by a newer one")
		return a.controller.SupersededOutcome(), nil
	}
	if err != nil {
		a.Log("error", fmt.Sprintf("Query failed: %v", err))
		return nil, err
	}
	return a.controller.Outcome(result), nil
}

// GetFilterState returns the current filter state.
func (a *App) GetFilterState() filterstate.Snapshot {
	return a.controller.State().Snapshot()
}

// SetFilter applies a single-column edit.
func (a *App) SetFilter(column string, patch filterstate.Patch) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.ApplyPatch(a.callCtx(), column, patch))
}

// SetCondition switches the condition of column's filter.
func (a *App) SetCondition(column, condition string) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.SetCondition(a.callCtx(), column, filter.ParseCondition(condition)))
}

// RemoveFilter clears column's filter.
func (a *App) RemoveFilter(column string) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.RemoveFilter(a.callCtx(), column))
}

// ClearFilters clears every filter, keeping the sort.
func (a *App) ClearFilters() (*filterstate.Outcome, error) {
	return a.outcome(a.controller.ClearFilters(a.callCtx()))
}

// ReplaceFilters swaps in a whole filter state.
func (a *App) ReplaceFilters(snapshot filterstate.Snapshot) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.ReplaceState(a.callCtx(), snapshot.State()))
}

// SetTableFilter sets the header-icon selection of column.
func (a *App) SetTableFilter(column string, values []string) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.SetTableFilter(a.callCtx(), column, values))
}

// SetDuplicates keeps only rows whose key over cols occurs more than once.
// Empty cols clears the filter.
func (a *App) SetDuplicates(name string, cols []string) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.SetDuplicate(a.callCtx(), name, cols))
}

// SetGlobalSearch updates the global search. The recompute is debounced and
// its result arrives as a filters:result event.
func (a *App) SetGlobalSearch(search string) {
	a.controller.SetGlobalSearch(search)
}

// ToggleSort sorts by column, flipping direction on repeat.
func (a *App) ToggleSort(column string) (*filterstate.Outcome, error) {
	return a.outcome(a.controller.ToggleSort(a.callCtx(), column))
}

// ClearSort restores dataset order.
func (a *App) ClearSort() (*filterstate.Outcome, error) {
	return a.outcome(a.controller.ClearSort(a.callCtx()))
}

// GetRows returns a window of the visible rows.
func (a *App) GetRows(offset, limit int) (*filterstate.Page, error) {
	return a.controller.Page(a.callCtx(), offset, limit)
}
