package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/savedl/internal/models"
)

var _ list.Item = outcomeItem{}

// outcomeItem wraps a failed [models.Outcome] to implement [list.Item].
type outcomeItem struct {
	outcome models.Outcome
}

func (i outcomeItem) FilterValue() string { return i.outcome.Item.URL }
func (i outcomeItem) Title() string {
	return fmt.Sprintf("#%d %s", i.outcome.Item.Position+1, i.outcome.Item.URL)
}
func (i outcomeItem) Description() string {
	if i.outcome.Detail == "" {
		return i.outcome.Kind.String()
	}
	return fmt.Sprintf("%s • %s", i.outcome.Kind, i.outcome.Detail)
}

// failureList lists the failed and not-found outcomes of a finished batch.
func failureList(outcomes []models.Outcome, width, height int) list.Model {
	var items []list.Item
	for _, o := range outcomes {
		if o.IsFailure() {
			items = append(items, outcomeItem{outcome: o})
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = fmt.Sprintf("%d failed", len(items))
	l.SetShowHelp(false)
	return l
}
