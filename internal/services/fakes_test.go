package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ml4ch/CoSESWeather/internal/crypto"
	"github.com/ml4ch/CoSESWeather/internal/models"
)

var errBoom = errors.New("connection reset by peer")

// memStore is an in-memory PrimaryStore. Transactions snapshot the state and restore it
// when fn fails.
type memStore struct {
	mu        sync.Mutex
	accounts  map[string]models.Account
	audit     []models.AuditLog
	readings  []models.SensorReading
	nextAudit uint64

	failFind   bool
	failAppend bool
	failClaim  bool
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]models.Account{}}
}

var _ PrimaryStore = (*memStore)(nil)

func (m *memStore) FindAccount(_ context.Context, email string, adminOnly bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind {
		return nil, errBoom
	}
	a, ok := m.accounts[email]
	if !ok || (adminOnly && !a.Admin) {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memStore) AppendAudit(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errBoom
	}
	m.nextAudit++
	entry.ID = m.nextAudit
	entry.CreatedAt = time.Now()
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *memStore) QueryAudit(_ context.Context, priorities []int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLog
	for i := len(m.audit) - 1; i >= 0; i-- {
		for _, p := range priorities {
			if m.audit[i].Priority == p {
				out = append(out, m.audit[i])
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) ClaimPendingCommand(_ context.Context) (*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClaim {
		return nil, errBoom
	}
	for i := range m.audit {
		if m.audit[i].Priority == models.PriorityPending {
			m.audit[i].Priority = models.PrioritySystemEvent
			claimed := m.audit[i]
			return &claimed, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListAccounts(_ context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Admin != out[j].Admin {
			return out[i].Admin
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (m *memStore) AdminEmails(ctx context.Context) ([]string, error) {
	accounts, _ := m.ListAccounts(ctx)
	var out []string
	for _, a := range accounts {
		if a.Admin {
			out = append(out, a.Email)
		}
	}
	return out, nil
}

func (m *memStore) CountAccounts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.accounts)), nil
}

func (m *memStore) CreateAccount(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.Email]; ok {
		return ErrDuplicateIdentity
	}
	m.accounts[account.Email] = *account
	return nil
}

func (m *memStore) DeleteAccount(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[email]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, email)
	return nil
}

func (m *memStore) update(email string, fn func(a *models.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return ErrNotFound
	}
	fn(&a)
	m.accounts[email] = a
	return nil
}

func (m *memStore) UpdateSecret(_ context.Context, email, hash, salt string) error {
	return m.update(email, func(a *models.Account) { a.Hash, a.Salt = hash, salt })
}

func (m *memStore) SetAdmin(_ context.Context, email string, admin bool) error {
	return m.update(email, func(a *models.Account) { a.Admin = admin })
}

func (m *memStore) TouchLastLogin(_ context.Context, email string, at time.Time) error {
	return m.update(email, func(a *models.Account) { a.LastLogin = &at })
}

func (m *memStore) InsertReading(_ context.Context, reading *models.SensorReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reading.ID = uint64(len(m.readings) + 1)
	m.readings = append(m.readings, *reading)
	return nil
}

func (m *memStore) LatestReading(_ context.Context) (*models.SensorReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readings) == 0 {
		return nil, ErrNotFound
	}
	r := m.readings[len(m.readings)-1]
	return &r, nil
}

func (m *memStore) ClaimUnarchived(_ context.Context) ([]models.SensorReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SensorReading
	for i := range m.readings {
		if !m.readings[i].Archived {
			m.readings[i].Archived = true
			out = append(out, m.readings[i])
		}
	}
	return out, nil
}

func (m *memStore) Transaction(_ context.Context, fn func(tx PrimaryStore) error) error {
	m.mu.Lock()
	accounts := make(map[string]models.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	audit := append([]models.AuditLog(nil), m.audit...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.accounts = accounts
		m.audit = audit
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) auditEntries() []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditLog(nil), m.audit...)
}

// seriesFake serves samples filtered to [start, stop) and per-channel hi/lo rows.
type seriesFake struct {
	samples []models.Sample
	hilo    map[string][]models.HiLoStat

	failSamples bool
	failHiLo    string

	mu         sync.Mutex
	hiloCalls  []string
	hiloWindow [2]int64
}

var _ ArchiveSource = (*seriesFake)(nil)

func (s *seriesFake) Samples(_ context.Context, channels []models.Channel, start, stop int64) ([]models.Sample, error) {
	if s.failSamples {
		return nil, errBoom
	}
	var out []models.Sample
	for _, sample := range s.samples {
		if sample.Timestamp >= start && sample.Timestamp < stop {
			out = append(out, models.Sample{Timestamp: sample.Timestamp, Values: sample.Values[:len(channels)]})
		}
	}
	return out, nil
}

func (s *seriesFake) Earliest(_ context.Context) (int64, bool, error) {
	if len(s.samples) == 0 {
		return 0, false, nil
	}
	min := s.samples[0].Timestamp
	for _, sample := range s.samples {
		if sample.Timestamp < min {
			min = sample.Timestamp
		}
	}
	return min, true, nil
}

func (s *seriesFake) HiLo(_ context.Context, channel models.Channel, start, stop int64) ([]models.HiLoStat, error) {
	s.mu.Lock()
	s.hiloCalls = append(s.hiloCalls, channel.Name)
	s.hiloWindow = [2]int64{start, stop}
	s.mu.Unlock()
	if channel.Name == s.failHiLo {
		return nil, errBoom
	}
	return s.hilo[channel.Name], nil
}

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func newTestVerifier(store AccountReader) *CredentialVerifier {
	h, err := crypto.NewHasher(crypto.SchemeSHA1)
	if err != nil {
		panic(err)
	}
	return NewCredentialVerifier(store, h)
}

// seedAccount stores an account hashed with the verifier's scheme.
func seedAccount(store *memStore, v *CredentialVerifier, name, email, secret string, admin bool) {
	hash, salt, err := v.Derive(secret)
	if err != nil {
		panic(err)
	}
	store.accounts[email] = models.Account{Name: name, Email: email, Hash: hash, Salt: salt, Admin: admin}
}
