package relay

import (
	"context"
	"fmt"
	"slices"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/internal/service/audience"
)

var ticketFields = []string{
	"title",
	"sg_ticket_type",
	"sg_priority",
	"description",
	"created_by",
	"sg_status_list",
	"addressings_cc",
	"addressings_to",
}

// ticketAudience is everyone addressed on the ticket plus its author.
func ticketAudience(ticket domain.Record) []domain.EntityRef {
	refs := slices.Concat(ticket.Refs("addressings_to"), ticket.Refs("addressings_cc"))
	if author, ok := ticket.Ref("created_by"); ok {
		refs = append(refs, author)
	}
	return refs
}

// ticketContext fetches the ticket, its project and the display name of
// its status. A nil ticket means the event should be dropped with reason.
func (r *Relay) ticketContext(ctx context.Context, event domain.Event) (ticket domain.Record, projectName, status, reason string, err error) {
	project, err := r.store.FindOne(ctx, domain.EntityProject, byID(event.Project.ID), []string{"code", "name"})
	if err != nil {
		return nil, "", "", "", fmt.Errorf("fetch project: %w", domain.AsDirectory(err))
	}
	if project == nil {
		return nil, "", "", reasonProjectGone, nil
	}
	fields := ticketFields
	if f := r.settings.TicketStatusField; f != "" && !slices.Contains(fields, f) {
		fields = append(slices.Clone(fields), f)
	}
	ticket, err = r.store.FindOne(ctx, domain.EntityTicket, byID(entityID(event)), fields)
	if err != nil {
		return nil, "", "", "", fmt.Errorf("fetch ticket: %w", domain.AsDirectory(err))
	}
	if ticket == nil {
		return nil, "", "", reasonEntityNotFound, nil
	}
	status, err = r.statusName(ctx, ticket.String(r.settings.TicketStatusField))
	if err != nil {
		return nil, "", "", "", fmt.Errorf("fetch status: %w", domain.AsDirectory(err))
	}
	return ticket, project.String("name"), status, "", nil
}

// ticketReply tells everyone on a ticket about a new reply.
func (r *Relay) ticketReply(ctx context.Context, event domain.Event) (domain.Report, error) {
	if event.Project == nil {
		return dropped(reasonNoProject), nil
	}
	if len(event.Meta.Added) == 0 {
		return dropped(reasonNoRecipients), nil
	}

	ticket, projectName, status, reason, err := r.ticketContext(ctx, event)
	if err != nil {
		return domain.Report{}, fmt.Errorf("ticket reply: %w", err)
	}
	if ticket == nil {
		return dropped(reason), nil
	}

	recipients, err := audience.Resolve(ctx, ticketAudience(ticket), r.groups, event.Actor)
	if err != nil {
		return domain.Report{}, fmt.Errorf("ticket reply: %w", err)
	}
	reply := event.Meta.Added[0].Name
	return r.notifyUsers(ctx, recipients, TicketReplyMessage(r.links, ticket, projectName, status, reply, event.Actor))
}

// ticketStatus tells everyone on a ticket that it reached a watched status.
func (r *Relay) ticketStatus(ctx context.Context, event domain.Event) (domain.Report, error) {
	if v := r.ticketGuard.Precheck(event); !v.Admitted {
		return dropped(v.Reason), nil
	}
	if event.Project == nil {
		return dropped(reasonNoProject), nil
	}

	ticket, projectName, status, reason, err := r.ticketContext(ctx, event)
	if err != nil {
		return domain.Report{}, fmt.Errorf("ticket status: %w", err)
	}
	if ticket == nil {
		return dropped(reason), nil
	}
	if v := r.ticketGuard.Check(event, ticket); !v.Admitted {
		return dropped(v.Reason), nil
	}

	recipients, err := audience.Resolve(ctx, ticketAudience(ticket), r.groups, event.Actor)
	if err != nil {
		return domain.Report{}, fmt.Errorf("ticket status: %w", err)
	}
	return r.notifyUsers(ctx, recipients, TicketStatusMessage(r.links, ticket, projectName, status, event.Actor))
}

// ticketCC tells users newly copied on a ticket.
func (r *Relay) ticketCC(ctx context.Context, event domain.Event) (domain.Report, error) {
	if event.Project == nil {
		return dropped(reasonNoProject), nil
	}
	if len(event.Meta.Added) == 0 {
		return dropped(reasonNoRecipients), nil
	}

	ticket, projectName, status, reason, err := r.ticketContext(ctx, event)
	if err != nil {
		return domain.Report{}, fmt.Errorf("ticket cc: %w", err)
	}
	if ticket == nil {
		return dropped(reason), nil
	}

	recipients, err := audience.Resolve(ctx, event.Meta.Added, r.groups, event.Actor)
	if err != nil {
		return domain.Report{}, fmt.Errorf("ticket cc: %w", err)
	}
	return r.notifyUsers(ctx, recipients, TicketCCMessage(r.links, ticket, projectName, status))
}
