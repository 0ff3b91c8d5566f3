package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

// In-memory repository fakes mirroring the SQL semantics of
// internal/repository, including the row-guard behavior the usecases
// rely on.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdatePlan(_ context.Context, id string, plan domain.Plan) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Plan = plan
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) TryDeductCredits(_ context.Context, id string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.Plan != domain.PlanHobby {
		return nil
	}
	if u.Credits < amount {
		return domain.ErrInsufficientCredits
	}
	u.Credits -= amount
	return nil
}

func (r *fakeUserRepo) credits(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].Credits
}

type fakeAppRepo struct {
	mu   sync.Mutex
	apps map[string]*domain.App
}

func newFakeAppRepo(apps ...*domain.App) *fakeAppRepo {
	r := &fakeAppRepo{apps: make(map[string]*domain.App)}
	for _, a := range apps {
		cp := *a
		r.apps[a.ID] = &cp
	}
	return r
}

func (r *fakeAppRepo) GetByID(_ context.Context, id string) (*domain.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrAppNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAppRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.App
	for _, a := range r.apps {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAppRepo) Create(_ context.Context, app *domain.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

type fakeConfigRepo struct {
	mu     sync.Mutex
	rows   []*domain.SendingConfiguration
	nextID int64
}

func newFakeConfigRepo(rows ...*domain.SendingConfiguration) *fakeConfigRepo {
	r := &fakeConfigRepo{nextID: 1}
	for _, row := range rows {
		cp := *row
		cp.ID = r.nextID
		r.nextID++
		r.rows = append(r.rows, &cp)
	}
	return r
}

func (r *fakeConfigRepo) GetActiveByApp(_ context.Context, appID string) (*domain.SendingConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AppID == appID && row.IsActive {
			cp := *row
			return &cp, nil
		}
	}
	return nil, domain.ErrNoActiveProvider
}

func (r *fakeConfigRepo) ActivateProvider(_ context.Context, appID, userID string, p domain.ProviderType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target *domain.SendingConfiguration
	for _, row := range r.rows {
		if row.AppID != appID {
			continue
		}
		if row.Provider == p {
			target = row
		} else {
			row.IsActive = false
		}
	}
	if target == nil {
		target = &domain.SendingConfiguration{
			ID:                 r.nextID,
			AppID:              appID,
			UserID:             userID,
			Provider:           p,
			ProvisioningStatus: domain.ProvisioningIdle,
			CreatedAt:          time.Now(),
		}
		r.nextID++
		r.rows = append(r.rows, target)
	}
	target.IsActive = true
	return nil
}

func (r *fakeConfigRepo) MarkPending(_ context.Context, appID string, p domain.ProviderType) error {
	return r.mutate(appID, p, func(row *domain.SendingConfiguration) {
		row.ProvisioningStatus = domain.ProvisioningPending
		row.ProvisioningError = ""
	})
}

func (r *fakeConfigRepo) RecordProvisioningSuccess(_ context.Context, appID string, p domain.ProviderType, creds domain.Credentials) error {
	return r.mutate(appID, p, func(row *domain.SendingConfiguration) {
		row.ProvisioningStatus = domain.ProvisioningSuccess
		row.ProvisioningError = ""
		row.Credentials = creds
	})
}

func (r *fakeConfigRepo) RecordProvisioningFailure(_ context.Context, appID string, p domain.ProviderType, message string) error {
	return r.mutate(appID, p, func(row *domain.SendingConfiguration) {
		row.ProvisioningStatus = domain.ProvisioningFailed
		row.ProvisioningError = message
	})
}

func (r *fakeConfigRepo) mutate(appID string, p domain.ProviderType, fn func(*domain.SendingConfiguration)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AppID == appID && row.Provider == p {
			fn(row)
			return nil
		}
	}
	return domain.ErrNoActiveProvider
}

func (r *fakeConfigRepo) snapshot() []domain.SendingConfiguration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SendingConfiguration, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out
}

type fakeLogRepo struct {
	mu   sync.Mutex
	logs map[string]*domain.EmailLog
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{logs: make(map[string]*domain.EmailLog)}
}

func (r *fakeLogRepo) Create(_ context.Context, log *domain.EmailLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *fakeLogRepo) GetByID(_ context.Context, id string) (*domain.EmailLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return nil, domain.ErrUnknownEntry
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLogRepo) GetByMessageTag(_ context.Context, tag string) (*domain.EmailLog, error) {
	return r.find(func(l *domain.EmailLog) bool { return l.MessageTag == tag })
}

func (r *fakeLogRepo) GetByMessageID(_ context.Context, messageID string) (*domain.EmailLog, error) {
	return r.find(func(l *domain.EmailLog) bool { return l.MessageID == messageID && messageID != "" })
}

func (r *fakeLogRepo) find(match func(*domain.EmailLog) bool) (*domain.EmailLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrUnknownEntry
}

func (r *fakeLogRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.Status != domain.StatusQueued {
		return domain.ErrUnknownEntry
	}
	l.Status = domain.StatusSent
	l.TimeSent = &at
	l.ErrorMessage = ""
	return nil
}

func (r *fakeLogRepo) MarkFailed(_ context.Context, id string, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.Status != domain.StatusQueued {
		return domain.ErrUnknownEntry
	}
	l.Status = domain.StatusFailed
	l.ErrorMessage = errorMessage
	return nil
}

func (r *fakeLogRepo) UpdateDelivery(_ context.Context, log *domain.EmailLog, expected domain.EmailStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.logs[log.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	cp := *log
	r.logs[log.ID] = &cp
	return true, nil
}

func (r *fakeLogRepo) ListInWindowByApps(_ context.Context, appIDs []string, from, to time.Time) ([]*domain.EmailLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(appIDs))
	for _, id := range appIDs {
		wanted[id] = true
	}
	var out []*domain.EmailLog
	for _, l := range r.logs {
		at := l.BucketTime()
		if wanted[l.AppID] && !at.Before(from) && at.Before(to) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketTime().Before(out[j].BucketTime()) })
	return out, nil
}

func (r *fakeLogRepo) get(id string) domain.EmailLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.logs[id]
}
