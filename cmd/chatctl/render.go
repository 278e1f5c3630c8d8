package main

import (
	"fmt"
	"io"
	"time"

	"batepapo/backend/internal/models"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type printer struct {
	out    io.Writer
	colors bool
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func (p printer) participants(list []models.Participant) {
	table := newTable(p.out, []string{"Name", "Last Seen"})
	for _, participant := range list {
		table.Append([]string{participant.Name, participant.LastSeen().Local().Format(time.DateTime)})
	}
	table.Render()
}

func (p printer) messages(list []models.Message) {
	table := newTable(p.out, []string{"Time", "ID", "From", "To", "Type", "Text"})
	for _, m := range list {
		table.Append([]string{m.Time, m.ID, m.From, m.To, string(m.Type), m.Text})
	}
	table.Render()
}

// line prints one message the way a chat window shows it
func (p printer) line(m models.Message) {
	text := fmt.Sprintf("(%s) %s", m.Time, describe(m))
	if p.colors {
		switch m.Type {
		case models.TypeStatus:
			text = color.New(color.FgGray).Render(text)
		case models.TypePrivate:
			text = color.New(color.BgBlack, color.FgMagenta).Render(text)
		}
	}
	fmt.Fprintln(p.out, text)
}

func (p printer) notice(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.colors {
		text = color.New(color.BgBlack, color.FgGreen).Render(text)
	}
	fmt.Fprintln(p.out, text)
}

func describe(m models.Message) string {
	switch m.Type {
	case models.TypeStatus:
		return fmt.Sprintf("%s %s", m.From, m.Text)
	case models.TypePrivate:
		return fmt.Sprintf("%s reservadamente para %s: %s", m.From, m.To, m.Text)
	default:
		return fmt.Sprintf("%s para %s: %s", m.From, m.To, m.Text)
	}
}
