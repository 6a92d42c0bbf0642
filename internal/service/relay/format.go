package relay

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// FinalEmoji is the pool a shot-final message picks its emoji from.
var FinalEmoji = []string{":tada:", ":+1:", ":sunglasses:", ":beer:", ":trophy:", ":fire:", ":cat:", ":dog:"}

const (
	publishUsername = "Shotgun Publishes"
	publishIcon     = ":construction:"
	versionColor    = "#439FE0"
)

// Links builds record-store web links in chat markup.
type Links struct {
	Site string
}

// EntityURL returns the detail page of ref.
func (l Links) EntityURL(ref domain.EntityRef) string {
	return fmt.Sprintf("%s/detail/%s/%d", l.Site, ref.Type, ref.ID)
}

// ProjectURL returns the overview page of a project.
func (l Links) ProjectURL(id int) string {
	return fmt.Sprintf("%s/page/project_overview?project_id=%d", l.Site, id)
}

// Entity renders ref as a link labelled with its name.
func (l Links) Entity(ref domain.EntityRef) string {
	return link(l.EntityURL(ref), ref.Name)
}

func link(url, text string) string {
	return "<" + url + "|" + text + ">"
}

// Unescape decodes HTML entities in record-store rich text.
func Unescape(s string) string {
	return html.UnescapeString(s)
}

// PriorityColor maps a ticket priority ("1 - Urgent", "2 - High", ...) to
// an attachment colour.
func PriorityColor(priority string) string {
	switch {
	case strings.HasPrefix(priority, "1"):
		return "danger"
	case strings.HasPrefix(priority, "2"):
		return "warning"
	}
	return "good"
}

// AssignmentMessage tells a user they were assigned task.
func AssignmentMessage(l Links, project, task domain.Record) domain.Message {
	proj := link(l.ProjectURL(project.ID()), project.String("code"))
	t := l.Entity(domain.EntityRef{Type: domain.EntityTask, ID: task.ID(), Name: task.String("content")})

	if parent, ok := task.Ref("entity"); ok {
		return domain.Message{Text: fmt.Sprintf("You've been assigned %s / %s / %s", proj, l.Entity(parent), t)}
	}
	return domain.Message{Text: fmt.Sprintf("You've been assigned %s / %s", proj, t)}
}

// ShotFinalMessage announces a finaled shot.
func ShotFinalMessage(l Links, shot domain.Record, emoji string) domain.Message {
	ref := domain.EntityRef{Type: domain.EntityShot, ID: shot.ID(), Name: shot.String("code")}
	return domain.Message{Text: fmt.Sprintf("%s Shot *%s* has been finaled!", emoji, l.Entity(ref))}
}

// PublishMessage describes a new published file. The thumbnail is attached
// unless the store reports a placeholder.
func PublishMessage(l Links, pub domain.Record, stepField string) domain.Message {
	var b strings.Builder

	self := pub.AsRef(domain.EntityPublishedFile)
	version := "_No Version_"
	if n, ok := pub.Int("version_number"); ok {
		version = strconv.Itoa(n)
	}
	fmt.Fprintf(&b, "%s version `%s`\n", l.Entity(self), version)

	if step := pub.String(stepField); step != "" {
		fmt.Fprintf(&b, "from *%s* ", step)
	}
	if parent, ok := pub.Ref("entity"); ok && parent.Name != "" {
		fmt.Fprintf(&b, "for *%s* ", parent.Name)
	}
	author := "_unknown_"
	if by, ok := pub.Ref("created_by"); ok {
		author = l.Entity(by)
	}
	fmt.Fprintf(&b, "by %s\n", author)

	description := pub.String("description")
	if description == "" {
		description = "_No Description_"
	}
	fmt.Fprintf(&b, "> %s", description)

	if path, ok := pub.Map("path"); ok {
		for _, key := range []string{"local_path_linux", "local_path_windows"} {
			if p, _ := path[key].(string); p != "" {
				fmt.Fprintf(&b, "\n```%s```", p)
			}
		}
	}

	text := b.String()
	block := domain.Block{Text: text}
	if image := pub.String("image"); image != "" && !strings.Contains(image, "no_preview") {
		block.ImageURL = image
		block.AltText = "PublishedFile.image"
	}

	return domain.Message{
		Text:      text,
		Username:  publishUsername,
		IconEmoji: publishIcon,
		Blocks:    []domain.Block{block},
	}
}

func ticketAttachment(l Links, ticket domain.Record, title string, author domain.EntityRef) domain.Attachment {
	ref := domain.EntityRef{Type: domain.EntityTicket, ID: ticket.ID()}
	return domain.Attachment{
		Color:      PriorityColor(ticket.String("sg_priority")),
		Title:      fmt.Sprintf("%s Ticket #%d: %s", title, ticket.ID(), Unescape(ticket.String("title"))),
		TitleLink:  l.EntityURL(ref),
		AuthorName: ":writing_hand: " + author.Name,
		AuthorLink: l.EntityURL(domain.EntityRef{Type: domain.EntityHumanUser, ID: author.ID}),
	}
}

// TicketReplyMessage announces a reply on a ticket.
func TicketReplyMessage(l Links, ticket domain.Record, projectName, statusName, reply string, actor domain.EntityRef) domain.Message {
	a := ticketAttachment(l, ticket, "New reply on", actor)
	a.Text = Unescape(reply)
	a.Fields = []domain.AttachmentField{
		{Title: "Project", Value: projectName, Short: true},
		{Title: "Status", Value: statusName, Short: true},
	}
	return domain.Message{Attachments: []domain.Attachment{a}}
}

// TicketStatusMessage announces a ticket status change.
func TicketStatusMessage(l Links, ticket domain.Record, projectName, statusName string, actor domain.EntityRef) domain.Message {
	a := ticketAttachment(l, ticket, "Status changed on", actor)
	a.Fields = []domain.AttachmentField{
		{Title: "Project", Value: projectName, Short: true},
		{Title: "New Status", Value: statusName, Short: true},
	}
	return domain.Message{Attachments: []domain.Attachment{a}}
}

// TicketCCMessage tells a user they were copied on a ticket.
func TicketCCMessage(l Links, ticket domain.Record, projectName, statusName string) domain.Message {
	author, _ := ticket.Ref("created_by")
	a := ticketAttachment(l, ticket, "You've been CC'd on", author)
	a.Text = Unescape(ticket.String("description"))
	a.Fields = []domain.AttachmentField{
		{Title: "Project", Value: projectName, Short: true},
		{Title: "Priority", Value: ticket.String("sg_priority"), Short: true},
		{Title: "Status", Value: statusName, Short: true},
		{Title: "Type", Value: ticket.String("sg_ticket_type"), Short: true},
	}
	return domain.Message{Attachments: []domain.Attachment{a}}
}

// VersionMessage announces a new version to project managers.
func VersionMessage(l Links, projectCode string, version, actor domain.EntityRef) domain.Message {
	return domain.Message{Attachments: []domain.Attachment{{
		Color:      versionColor,
		Title:      fmt.Sprintf("New Version submitted: %s / %s", projectCode, version.Name),
		TitleLink:  l.EntityURL(domain.EntityRef{Type: domain.EntityVersion, ID: version.ID}),
		AuthorName: ":writing_hand: " + actor.Name,
		AuthorLink: l.EntityURL(domain.EntityRef{Type: domain.EntityHumanUser, ID: actor.ID}),
	}}}
}
