// Package render translates reservation results into Slack payloads.
// It carries no business logic: every variant renders deterministically
// from its fields.
package render

import (
	"fmt"
	"strings"

	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/slack-go/slack"
)

// Message renders a command response as an ephemeral Slack message,
// visible only to the requester.
func Message(resp models.Response) slack.Msg {
	switch r := resp.(type) {
	case models.PlainText:
		return ephemeral(r.Text, markdownSection(r.Text))
	case models.HelpList:
		return helpMessage(r)
	case models.Fanout:
		return fanoutMessage(r)
	case models.StatusReport:
		return statusMessage(r)
	default:
		return ephemeral("Unable to render response.", markdownSection("Unable to render response."))
	}
}

func helpMessage(help models.HelpList) slack.Msg {
	var b strings.Builder
	b.WriteString(help.Intro)
	if len(help.Items) > 0 {
		b.WriteString("\n\n")
		b.WriteString(help.Heading)
		for _, item := range help.Items {
			b.WriteString(fmt.Sprintf("\n- `%s`", item))
		}
	}
	text := b.String()
	return ephemeral(text, markdownSection(text))
}

func fanoutMessage(result models.Fanout) slack.Msg {
	lines := make([]string, 0, len(result.Lines))
	for _, line := range result.Lines {
		marker := "❌"
		if line.Success {
			marker = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s", marker, line.Message))
	}

	noun := "request"
	if result.Total > 1 {
		noun = "requests"
	}
	summary := fmt.Sprintf("%d of %d %s succeeded.", result.Succeeded, result.Total, noun)
	text := strings.Join(lines, "\n") + "\n\n" + summary

	return ephemeral(text, markdownSection(strings.Join(lines, "\n")), markdownSection(summary))
}

func statusMessage(report models.StatusReport) slack.Msg {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Reservation Info", true, false)),
	}

	for _, env := range report.Environments {
		blocks = append(blocks, environmentSection(env)...)
	}

	return ephemeral("Reservation Info", blocks...)
}

func environmentSection(env models.EnvironmentStatus) []slack.Block {
	title := fmt.Sprintf("*%s*", env.Name)
	if len(env.Aliases) > 0 {
		title += fmt.Sprintf("\nAlso known as `%s`", strings.Join(env.Aliases, "`, `"))
	}

	blocks := []slack.Block{
		slack.NewDividerBlock(),
		markdownSection(title),
	}

	fields := make([]*slack.TextBlockObject, 0, len(env.Services))
	for _, svc := range env.Services {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, serviceField(env.Name, svc), false, false))
	}

	// Slack caps section fields at ten; environments stay well under
	// that, but chunk anyway so a large vocabulary still renders.
	for start := 0; start < len(fields); start += 10 {
		end := start + 10
		if end > len(fields) {
			end = len(fields)
		}
		blocks = append(blocks, slack.NewSectionBlock(nil, fields[start:end], nil))
	}

	return blocks
}

func serviceField(env string, svc models.ServiceStatus) string {
	label := svc.Label
	if svc.Service == "" {
		label = env
	}
	if svc.Icon != "" {
		label = svc.Icon + " " + label
	}

	if svc.Record == nil {
		return fmt.Sprintf("*%s*\n_Available for reservation_", label)
	}
	return fmt.Sprintf(
		"*%s*\n<@%s> since %s",
		label, svc.Record.HolderID, svc.Record.ReservedAt.Format(models.DateFormat),
	)
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func ephemeral(fallback string, blocks ...slack.Block) slack.Msg {
	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fallback,
		Blocks:       slack.Blocks{BlockSet: blocks},
	}
}
