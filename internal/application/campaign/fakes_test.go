package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

var errSMTPDown = errors.New("smtp down")

type fakeFamilies struct {
	families []*family.Family
	err      error
}

func (f *fakeFamilies) FindByID(_ context.Context, id uuid.UUID) (*family.Family, error) {
	for _, fam := range f.families {
		if fam.ID == id {
			return fam, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeFamilies) FindCreatedBetween(_ context.Context, from, to time.Time) ([]*family.Family, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*family.Family
	for _, fam := range f.families {
		if !fam.CreatedAt.Before(from) && !fam.CreatedAt.After(to) {
			out = append(out, fam)
		}
	}
	return out, nil
}

func (f *fakeFamilies) FindAll(context.Context) ([]*family.Family, error) {
	return f.families, nil
}

func (f *fakeFamilies) Create(_ context.Context, fam *family.Family) error {
	f.families = append(f.families, fam)
	return nil
}

type fakeMembers struct {
	members []*family.Member
}

func (f *fakeMembers) FindByID(_ context.Context, familyID, memberID uuid.UUID) (*family.Member, error) {
	for _, m := range f.members {
		if m.FamilyID == familyID && m.ID == memberID {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeMembers) FindByUserID(_ context.Context, familyID, userID uuid.UUID) (*family.Member, error) {
	for _, m := range f.members {
		if m.FamilyID == familyID && m.UserID != nil && *m.UserID == userID {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeMembers) FindByIDs(_ context.Context, familyID uuid.UUID, ids []uuid.UUID) ([]*family.Member, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*family.Member
	for _, m := range f.members {
		if m.FamilyID == familyID && want[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) FindByFamily(_ context.Context, familyID uuid.UUID) ([]*family.Member, error) {
	var out []*family.Member
	for _, m := range f.members {
		if m.FamilyID == familyID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) FindOwnerWithAccount(_ context.Context, familyID uuid.UUID) (*family.Member, error) {
	for _, m := range f.members {
		if m.FamilyID == familyID && m.IsOwner() && m.HasAccount() && m.HasEmail() {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeMembers) FindWithBirthdays(context.Context) ([]*family.Member, error) {
	var out []*family.Member
	for _, m := range f.members {
		if m.BirthDate != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) CountByFamily(ctx context.Context, familyID uuid.UUID) (int64, error) {
	members, _ := f.FindByFamily(ctx, familyID)
	return int64(len(members)), nil
}

func (f *fakeMembers) Create(_ context.Context, m *family.Member) error {
	f.members = append(f.members, m)
	return nil
}

func (f *fakeMembers) MarkPassed(context.Context, *family.Member) error {
	return nil
}

type fakeActivity struct {
	photos   map[uuid.UUID]int64
	journals map[uuid.UUID]int64
	recent   map[uuid.UUID]family.ActivitySummary
}

func newFakeActivity() *fakeActivity {
	return &fakeActivity{
		photos:   map[uuid.UUID]int64{},
		journals: map[uuid.UUID]int64{},
		recent:   map[uuid.UUID]family.ActivitySummary{},
	}
}

func (f *fakeActivity) CountPhotos(_ context.Context, familyID uuid.UUID) (int64, error) {
	return f.photos[familyID], nil
}

func (f *fakeActivity) CountJournals(_ context.Context, familyID uuid.UUID) (int64, error) {
	return f.journals[familyID], nil
}

func (f *fakeActivity) SummarizeSince(_ context.Context, familyID uuid.UUID, _ time.Time) (family.ActivitySummary, error) {
	s := f.recent[familyID]
	s.FamilyID = familyID
	return s, nil
}

// fakeCapsules serves only the cross-family lookups the evaluator makes
type fakeCapsules struct {
	capsule.Repository
	capsules []*capsule.Metadata
}

func (f *fakeCapsules) ListUnlockingOn(_ context.Context, date valueobject.Date) ([]*capsule.Metadata, error) {
	var out []*capsule.Metadata
	for _, c := range f.capsules {
		if c.Policy.UnlockDate.Equal(date) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCapsules) ListPassingUnlockable(_ context.Context, familyID, senderID uuid.UUID) ([]*capsule.Metadata, error) {
	var out []*capsule.Metadata
	for _, c := range f.capsules {
		if c.FamilyID == familyID && c.SenderID == senderID && c.Policy.UnlockOnPassing {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]*campaign.Record
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: map[string]*campaign.Record{}}
}

func ledgerKey(memberID uuid.UUID, t campaign.Type) string {
	return fmt.Sprintf("%s/%s", memberID, t)
}

func (l *fakeLedger) Exists(_ context.Context, memberID uuid.UUID, t campaign.Type) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.rows[ledgerKey(memberID, t)]
	return ok, nil
}

func (l *fakeLedger) Reserve(_ context.Context, memberID uuid.UUID, t campaign.Type) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey(memberID, t)
	if _, ok := l.rows[key]; ok {
		return false, nil
	}
	l.rows[key] = &campaign.Record{ID: uuid.New(), MemberID: memberID, Type: t, Status: campaign.StatusPending, CreatedAt: time.Now()}
	return true, nil
}

func (l *fakeLedger) MarkSent(_ context.Context, memberID uuid.UUID, t campaign.Type) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[ledgerKey(memberID, t)]
	if !ok || r.Status != campaign.StatusPending {
		return shared.ErrNotFound
	}
	now := time.Now()
	r.Status = campaign.StatusSent
	r.SentAt = &now
	return nil
}

func (l *fakeLedger) Release(_ context.Context, memberID uuid.UUID, t campaign.Type) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey(memberID, t)
	if r, ok := l.rows[key]; ok && r.Status == campaign.StatusPending {
		delete(l.rows, key)
	}
	return nil
}

func (l *fakeLedger) SweepStale(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for key, r := range l.rows {
		if r.Status == campaign.StatusPending && r.CreatedAt.Before(cutoff) {
			delete(l.rows, key)
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) Find(_ context.Context, memberID uuid.UUID, t campaign.Type) (*campaign.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[ledgerKey(memberID, t)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

// recordingMailer keeps every message and fails for chosen addresses
type recordingMailer struct {
	mu       sync.Mutex
	messages []Message
	failFor  map[string]error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{failFor: map[string]error{}}
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sentTo(address string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.messages {
		if msg.To == address {
			out = append(out, msg)
		}
	}
	return out
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
