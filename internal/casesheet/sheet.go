// Package casesheet renders the printable intake sheet of a repair case.
package casesheet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"go.uber.org/fx"
)

const timeLayout = "2006-01-02 15:04"

var Module = fx.Module("casesheet",
	fx.Provide(NewRenderer),
)

type Renderer interface {
	Render(ctx context.Context, c domain.CaseDetail) ([]byte, error)
}

type marotoRenderer struct{}

func NewRenderer() Renderer {
	return &marotoRenderer{}
}

// Render lays out one case on an A4 page using the core PDF fonts. Enum
// values print as their codes since those fonts have no CJK glyphs.
func (r *marotoRenderer) Render(_ context.Context, c domain.CaseDetail) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, "Repair sheet", props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(4, c.ID, props.Text{Size: 9, Align: align.Right, Top: 4}),
	)
	m.AddRow(4, line.NewCol(12))

	m.AddRow(22,
		col.New(6).Add(
			text.New("Customer", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(c.CustomerName, props.Text{Top: 5, Size: 9}),
			text.New(c.CustomerContact, props.Text{Top: 10, Size: 9}),
			text.New(c.CustomerNote, props.Text{Top: 15, Size: 8}),
		),
		col.New(6).Add(
			text.New("Received: "+c.ReceivedAt.UTC().Format(timeLayout), props.Text{Size: 9}),
			text.New("Status: "+string(c.Status), props.Text{Top: 5, Size: 9}),
			text.New(ageLine(c.StallInfo), props.Text{Top: 10, Size: 9}),
		),
	)

	m.AddRow(18,
		col.New(12).Add(
			text.New("Device", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(fmt.Sprintf("%s %s", c.Manufacturer, c.ModelName), props.Text{Top: 5, Size: 9}),
			text.New(fmt.Sprintf("Model no. %s / Board %s", c.ModelNumber, c.BoardNumber), props.Text{Top: 10, Size: 9}),
		),
	)

	for _, section := range []struct{ title, body string }{
		{"Symptom", c.Symptom},
		{"Initial hypothesis", c.InitialHypothesis},
		{"Actions taken", c.ActionsTaken},
		{"Measurements", c.Measurements},
		{"Not done", joinReason(c.NotDone, c.NotDoneReason)},
	} {
		if section.body == "" {
			continue
		}
		m.AddRow(7, text.NewCol(12, section.title, props.Text{Style: fontstyle.Bold, Size: 10, Top: 1}))
		m.AddAutoRow(text.NewCol(12, section.body, props.Text{Size: 9}))
	}

	m.AddRow(10,
		text.NewCol(6, "Outcome: "+optional(c.Outcome), props.Text{Size: 9, Top: 3}),
		text.NewCol(6, "Final decision: "+optional(c.FinalDecision), props.Text{Size: 9, Top: 3}),
	)

	if len(c.StatusHistory) > 0 {
		m.AddRow(8, text.NewCol(12, "Status history", props.Text{Style: fontstyle.Bold, Size: 10, Top: 2}))
		for _, h := range c.StatusHistory {
			m.AddRow(5,
				text.NewCol(4, h.CreatedAt.UTC().Format(timeLayout), props.Text{Size: 8}),
				text.NewCol(8, string(h.Status), props.Text{Size: 8}),
			)
		}
	}

	m.AddRow(6, text.NewCol(12, "Photos attached: "+strconv.Itoa(len(c.Attachments)), props.Text{Size: 8, Top: 2}))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render case sheet: %w", err)
	}
	return doc.GetBytes(), nil
}

func ageLine(info domain.StallInfo) string {
	if info.Stalled {
		return fmt.Sprintf("Age: %d days (stalled by %d)", info.AgeDays, info.StalledByDays)
	}
	return fmt.Sprintf("Age: %d days", info.AgeDays)
}

func joinReason(notDone, reason string) string {
	switch {
	case notDone == "":
		return reason
	case reason == "":
		return notDone
	default:
		return notDone + " (" + reason + ")"
	}
}

func optional[T ~string](v *T) string {
	if v == nil {
		return "-"
	}
	return string(*v)
}
