package render

import (
	"fmt"
	"strings"

	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/slack-go/slack"
)

// ReminderFallback is the plain-text summary attached to reminder sends
// for clients that cannot render blocks.
const ReminderFallback = "🔔 Environment Reservation Reminder"

// ReminderBlocks composes the daily reminder for one holder, listing
// everything they still have reserved.
func ReminderBlocks(holder models.HolderReservations) []slack.Block {
	items := make([]string, 0, len(holder.Items))
	for i, item := range holder.Items {
		items = append(items, fmt.Sprintf(
			"%d. `%s`, _since %s_",
			i+1, item.Key.String(), item.Record.ReservedAt.Format(models.DateFormat),
		))
	}

	greeting := fmt.Sprintf(
		"Hello <@%s>! This is a friendly reminder that you still have the following reserved:\n\n%s",
		holder.HolderID, strings.Join(items, "\n"),
	)

	return []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, ReminderFallback, true, false)),
		markdownSection(greeting),
		slack.NewDividerBlock(),
		markdownSection("⏳ *If you are still using the environment(s):*\nFeel free to ignore this message."),
		slack.NewDividerBlock(),
		markdownSection("✅ *If you have finished using the environment(s):*\n" +
			"Please don't forget to unreserve them with the `/unreserve` command and apply appropriate cleanup procedures such as:\n" +
			"- Reverting migrations\n" +
			"- Restoring environment variables\n" +
			"- Cleaning temporary files"),
		slack.NewDividerBlock(),
		markdownSection("Thank you for using Reserenv!"),
	}
}
