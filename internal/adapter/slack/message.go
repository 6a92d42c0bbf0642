package slack

import (
	"github.com/slack-go/slack"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

func messageOptions(msg domain.Message) []slack.MsgOption {
	var opts []slack.MsgOption
	if msg.Text != "" {
		opts = append(opts, slack.MsgOptionText(msg.Text, false))
	}
	if msg.Username != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Username))
	}
	if msg.IconEmoji != "" {
		opts = append(opts, slack.MsgOptionIconEmoji(msg.IconEmoji))
	}
	if len(msg.Attachments) > 0 {
		opts = append(opts, slack.MsgOptionAttachments(attachments(msg.Attachments)...))
	}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks(msg.Blocks)...))
	}
	return opts
}

func attachments(in []domain.Attachment) []slack.Attachment {
	out := make([]slack.Attachment, len(in))
	for i, a := range in {
		fields := make([]slack.AttachmentField, len(a.Fields))
		for j, f := range a.Fields {
			fields[j] = slack.AttachmentField{Title: f.Title, Value: f.Value, Short: f.Short}
		}
		out[i] = slack.Attachment{
			Color:      a.Color,
			Title:      a.Title,
			TitleLink:  a.TitleLink,
			Text:       a.Text,
			AuthorName: a.AuthorName,
			AuthorLink: a.AuthorLink,
			Fields:     fields,
		}
	}
	return out
}

// blocks renders each block as a markdown section with an optional image
// accessory.
func blocks(in []domain.Block) []slack.Block {
	out := make([]slack.Block, len(in))
	for i, b := range in {
		text := slack.NewTextBlockObject(slack.MarkdownType, b.Text, false, false)
		var accessory *slack.Accessory
		if b.ImageURL != "" {
			accessory = slack.NewAccessory(slack.NewImageBlockElement(b.ImageURL, b.AltText))
		}
		out[i] = slack.NewSectionBlock(text, nil, accessory)
	}
	return out
}
