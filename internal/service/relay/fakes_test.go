package relay

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/internal/service/audience"
	"github.com/wwfxuk/shotgunEvents/internal/service/dispatch"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ref(entityType string, id int, name string) domain.EntityRef {
	return domain.EntityRef{Type: entityType, ID: id, Name: name}
}

func linkOf(r domain.EntityRef) map[string]any {
	return map[string]any{"type": r.Type, "id": r.ID, "name": r.Name}
}

func linksOf(refs ...domain.EntityRef) []any {
	out := make([]any, len(refs))
	for i, r := range refs {
		out[i] = linkOf(r)
	}
	return out
}

// ---------------------------------------------------------------------------
// memStore: in-memory record store
// ---------------------------------------------------------------------------

type update struct {
	EntityType string
	ID         int
	Fields     map[string]any
}

type memStore struct {
	mu      sync.Mutex
	records map[string][]domain.Record
	fail    map[string]error
	updates []update
}

func newMemStore() *memStore {
	return &memStore{records: map[string][]domain.Record{}, fail: map[string]error{}}
}

func (s *memStore) put(entityType string, rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec["type"] = entityType
	s.records[entityType] = append(s.records[entityType], rec)
}

func (s *memStore) FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[entityType]; err != nil {
		return nil, err
	}
next:
	for _, rec := range s.records[entityType] {
		for _, f := range filters {
			if !domain.SameValue(rec[f.Field], f.Value) {
				continue next
			}
		}
		return maps.Clone(rec), nil
	}
	return nil, nil
}

func (s *memStore) Update(ctx context.Context, entityType string, id int, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["update:"+entityType]; err != nil {
		return err
	}
	s.updates = append(s.updates, update{EntityType: entityType, ID: id, Fields: fields})
	for _, rec := range s.records[entityType] {
		if rec.ID() == id {
			maps.Copy(rec, fields)
		}
	}
	return nil
}

func (s *memStore) Updates() []update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]update(nil), s.updates...)
}

// ---------------------------------------------------------------------------
// chatTransportMock
// ---------------------------------------------------------------------------

var _ chatTransport = &chatTransportMock{}

type post struct {
	Channel string
	Msg     domain.Message
}

type membershipCall struct {
	ChannelID string
	UserID    string
}

type chatTransportMock struct {
	PostMessageFunc   func(ctx context.Context, channel string, msg domain.Message) domain.ChatResult
	CreateChannelFunc func(ctx context.Context, name string, private bool) domain.ChatResult
	InviteUserFunc    func(ctx context.Context, channelID, userID string) domain.ChatResult
	RemoveUserFunc    func(ctx context.Context, channelID, userID string) domain.ChatResult

	mu    sync.Mutex
	calls struct {
		PostMessage   []post
		CreateChannel []struct {
			Name    string
			Private bool
		}
		InviteUser []membershipCall
		RemoveUser []membershipCall
	}
}

func (mock *chatTransportMock) PostMessage(ctx context.Context, channel string, msg domain.Message) domain.ChatResult {
	mock.mu.Lock()
	mock.calls.PostMessage = append(mock.calls.PostMessage, post{Channel: channel, Msg: msg})
	mock.mu.Unlock()
	if mock.PostMessageFunc == nil {
		return domain.Succeeded()
	}
	return mock.PostMessageFunc(ctx, channel, msg)
}

func (mock *chatTransportMock) CreateChannel(ctx context.Context, name string, private bool) domain.ChatResult {
	if mock.CreateChannelFunc == nil {
		panic("chatTransportMock.CreateChannelFunc: method is nil but chatTransport.CreateChannel was just called")
	}
	mock.mu.Lock()
	mock.calls.CreateChannel = append(mock.calls.CreateChannel, struct {
		Name    string
		Private bool
	}{Name: name, Private: private})
	mock.mu.Unlock()
	return mock.CreateChannelFunc(ctx, name, private)
}

func (mock *chatTransportMock) InviteUser(ctx context.Context, channelID, userID string) domain.ChatResult {
	mock.mu.Lock()
	mock.calls.InviteUser = append(mock.calls.InviteUser, membershipCall{ChannelID: channelID, UserID: userID})
	mock.mu.Unlock()
	if mock.InviteUserFunc == nil {
		return domain.Succeeded()
	}
	return mock.InviteUserFunc(ctx, channelID, userID)
}

func (mock *chatTransportMock) RemoveUser(ctx context.Context, channelID, userID string) domain.ChatResult {
	mock.mu.Lock()
	mock.calls.RemoveUser = append(mock.calls.RemoveUser, membershipCall{ChannelID: channelID, UserID: userID})
	mock.mu.Unlock()
	if mock.RemoveUserFunc == nil {
		return domain.Succeeded()
	}
	return mock.RemoveUserFunc(ctx, channelID, userID)
}

func (mock *chatTransportMock) PostMessageCalls() []post {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]post(nil), mock.calls.PostMessage...)
}

func (mock *chatTransportMock) InviteUserCalls() []membershipCall {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]membershipCall(nil), mock.calls.InviteUser...)
}

func (mock *chatTransportMock) RemoveUserCalls() []membershipCall {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]membershipCall(nil), mock.calls.RemoveUser...)
}

// ---------------------------------------------------------------------------
// identities
// ---------------------------------------------------------------------------

// staticIdentities resolves users from a table; others are unresolved.
type staticIdentities map[int]string

func (s staticIdentities) Resolve(ctx context.Context, u domain.EntityRef) (string, error) {
	if id, ok := s[u.ID]; ok {
		return id, nil
	}
	return "", domain.ErrUnresolved
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

const (
	site          = "https://studio.shotgrid.autodesk.com"
	channelField  = "sg_slack_channel_id"
	coordinatorID = 99
)

func testSettings() Settings {
	return Settings{
		SiteURL:            site,
		ShotStatusField:    "sg_status_list",
		ShotStatuses:       []string{"cmpt"},
		TicketStatusField:  "sg_status_list",
		TicketStatuses:     []string{"cmpt", "ip"},
		CoordinatorsGroup:  "Coordinators",
		ManagerRoles:       []string{"sg_vfx_supervisor", "sg_cg_supervisor", "sg_producer"},
		MemberFields:       []string{"users", "sg_vfx_supervisor", "sg_cg_supervisor", "sg_producer", "sg_coordinator"},
		ChannelPrefix:      "proj-",
		ProjectSettleDelay: 2 * time.Second,
		ChannelIDField:     channelField,
		BotUserID:          "UBOT",
		LastLoginField:     "sg_last_login",
		PublishStepField:   "task.Task.step.Step.code",
	}
}

type fixture struct {
	store *memStore
	chat  *chatTransportMock
	relay *Relay
	slept []time.Duration
}

func newFixture(t *testing.T, identities identityResolver, settings Settings) *fixture {
	t.Helper()

	store := newMemStore()
	store.put(domain.EntityProject, domain.Record{"id": 70, "code": "ABC", "name": "Alpha Bravo", channelField: "C70"})
	store.put(domain.EntityGroup, domain.Record{"id": 4, "code": "Coordinators", "users": linksOf(ref(domain.EntityHumanUser, coordinatorID, "Coco"))})

	chat := &chatTransportMock{}
	log := newTestLogger()
	groups := audience.NewGroups(log, store)
	d := dispatch.New(log, identities, 4)

	f := &fixture{store: store, chat: chat}
	f.relay = New(log, store, chat, identities, groups, d, settings)
	f.relay.sleep = func(ctx context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	f.relay.pick = func(int) int { return 0 }
	return f
}

// handle runs the named handler directly.
func (f *fixture) handle(t *testing.T, name string, event domain.Event) (domain.Report, error) {
	t.Helper()
	for _, h := range f.relay.Handlers() {
		if h.Name() == name {
			if !h.Matches(event) {
				t.Fatalf("handler %s does not match %s/%s", name, event.EventType, event.Attribute())
			}
			return h.Handle(context.Background(), event)
		}
	}
	t.Fatalf("no handler %s", name)
	return domain.Report{}, nil
}
