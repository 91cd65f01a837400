package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// --- Mocks ---

// mockStore backs every repository port with maps guarded by one mutex,
// which also makes the registry's claim atomic.
type mockStore struct {
	mu        sync.Mutex
	languages map[string]domain.Language
	campaigns map[string]domain.Campaign
	partners  map[string]domain.Partner
	payments  map[string]domain.Payment

	failUpdate  map[string]error
	failRelease map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{
		languages:   make(map[string]domain.Language),
		campaigns:   make(map[string]domain.Campaign),
		partners:    make(map[string]domain.Partner),
		payments:    make(map[string]domain.Payment),
		failUpdate:  make(map[string]error),
		failRelease: make(map[string]error),
	}
}

func (m *mockStore) addLanguage(id string) domain.Language {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := domain.NewLanguage(id, id, "Language "+id, 1000, 0)
	m.languages[id] = l
	return l
}

func (m *mockStore) addPartner(id, email string) domain.Partner {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.NewPartner(id, email, "Partner "+id, "", "")
	p.ExternalCustomerID = "cus_" + id
	m.partners[id] = p
	return p
}

func (m *mockStore) addCampaign(c domain.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	if c.Type == domain.CampaignAdoptLanguage && c.Status == domain.CampaignActive {
		l := m.languages[c.LanguageID]
		l.AdoptionStatus = domain.AdoptionAdopted
		m.languages[c.LanguageID] = l
	}
}

func (m *mockStore) language(id string) domain.Language {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.languages[id]
}

func (m *mockStore) campaign(id string) domain.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[id]
}

func (m *mockStore) activeAdoptions(languageID string) int {
	n := 0
	for _, c := range m.campaigns {
		if c.LanguageID == languageID && c.Type == domain.CampaignAdoptLanguage && c.Status == domain.CampaignActive {
			n++
		}
	}
	return n
}

type mockLanguages struct{ *mockStore }

func (m mockLanguages) Create(_ context.Context, l domain.Language) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.languages[l.ID] = l
	return nil
}

func (m mockLanguages) GetByID(_ context.Context, id string) (domain.Language, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.languages[id]
	if !ok {
		return domain.Language{}, domain.ErrLanguageNotFound
	}
	return l, nil
}

func (m mockLanguages) List(_ context.Context, _ domain.LanguageFilter) ([]domain.Language, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Language, 0, len(m.languages))
	for _, l := range m.languages {
		out = append(out, l)
	}
	return out, nil
}

func (m mockLanguages) SetStatus(_ context.Context, id string, status domain.AdoptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.languages[id]
	if !ok {
		return domain.ErrLanguageNotFound
	}
	l.AdoptionStatus = status
	m.languages[id] = l
	return nil
}

type mockCampaigns struct{ *mockStore }

func (m mockCampaigns) Create(_ context.Context, c domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; ok {
		return errors.New("duplicate campaign id")
	}
	m.campaigns[c.ID] = c
	return nil
}

func (m mockCampaigns) GetByID(_ context.Context, id string) (domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return c, nil
}

func (m mockCampaigns) GetBySubscription(_ context.Context, subscriptionID string) (domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.ExternalSubscriptionID == subscriptionID {
			return c, nil
		}
	}
	return domain.Campaign{}, domain.ErrCampaignNotFound
}

func (m mockCampaigns) List(_ context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if filter.PartnerID != "" && c.PartnerID != filter.PartnerID {
			continue
		}
		if filter.LanguageID != "" && c.LanguageID != filter.LanguageID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m mockCampaigns) ListDueAdoptions(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == domain.CampaignActive && c.Type == domain.CampaignAdoptLanguage &&
			c.OneTime() && !c.NextBillingDate.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m mockCampaigns) ListExpiring(_ context.Context, from, to time.Time) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == domain.CampaignActive && c.NextBillingDate.After(from) && !c.NextBillingDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m mockCampaigns) UpdateStatus(_ context.Context, id string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(id, from, to, at)
}

func (m *mockStore) updateStatusLocked(id string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, error) {
	if err := m.failUpdate[id]; err != nil {
		return domain.Campaign{}, err
	}
	c, ok := m.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	if c.Status != from {
		return c, domain.ErrStaleCampaign
	}
	c.Status = to
	c.UpdatedAt = at
	if to.Terminal() {
		end := at
		c.EndDate = &end
	}
	if to == domain.CampaignCancelled {
		c.ExternalSubscriptionID = ""
	}
	m.campaigns[id] = c
	return c, nil
}

func (m mockCampaigns) SetNextBillingDate(_ context.Context, id string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	c.NextBillingDate = next
	m.campaigns[id] = c
	return nil
}

type mockRegistry struct{ *mockStore }

func (m mockRegistry) claimLocked(languageID string) error {
	l, ok := m.languages[languageID]
	if !ok {
		return domain.ErrLanguageNotFound
	}
	if l.AdoptionStatus == domain.AdoptionAdopted || m.activeAdoptions(languageID) > 0 {
		return &domain.AdoptionConflictError{LanguageID: languageID}
	}
	l.AdoptionStatus = domain.AdoptionAdopted
	m.languages[languageID] = l
	return nil
}

func (m mockRegistry) TryAdopt(_ context.Context, languageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimLocked(languageID)
}

func (m mockRegistry) ClaimAndCreate(_ context.Context, c domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; ok {
		return errors.New("duplicate campaign id")
	}
	if err := m.claimLocked(c.LanguageID); err != nil {
		return err
	}
	m.campaigns[c.ID] = c
	return nil
}

func (m mockRegistry) ClaimAndResume(_ context.Context, id string, at time.Time) (domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	if err := m.claimLocked(c.LanguageID); err != nil {
		return domain.Campaign{}, err
	}
	return m.updateStatusLocked(id, domain.CampaignPaused, domain.CampaignActive, at)
}

func (m mockRegistry) Release(_ context.Context, languageID string) (domain.ReleaseOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked(languageID)
}

// EndAndRelease checks every injected failure before touching state, so a
// failure leaves both the campaign and the language unchanged.
func (m mockRegistry) EndAndRelease(_ context.Context, id string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, domain.ReleaseOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.Campaign{}, "", domain.ErrCampaignNotFound
	}
	if c.Type != domain.CampaignAdoptLanguage {
		return domain.Campaign{}, "", domain.NewValidationError("type", "only adoption campaigns hold a language")
	}
	if _, ok := m.languages[c.LanguageID]; !ok {
		return domain.Campaign{}, "", domain.ErrLanguageNotFound
	}
	if err := m.failRelease[c.LanguageID]; err != nil {
		return domain.Campaign{}, "", err
	}
	updated, err := m.updateStatusLocked(id, from, to, at)
	if err != nil {
		return updated, "", err
	}
	outcome, err := m.releaseLocked(c.LanguageID)
	return updated, outcome, err
}

func (m mockRegistry) releaseLocked(languageID string) (domain.ReleaseOutcome, error) {
	if err := m.failRelease[languageID]; err != nil {
		return "", err
	}
	l, ok := m.languages[languageID]
	if !ok {
		return "", domain.ErrLanguageNotFound
	}
	if m.activeAdoptions(languageID) > 0 {
		return domain.ReleaseStillHeld, nil
	}
	l.AdoptionStatus = domain.AdoptionAvailable
	m.languages[languageID] = l
	return domain.ReleaseReleased, nil
}

type mockPartners struct{ *mockStore }

func (m mockPartners) Create(_ context.Context, p domain.Partner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.partners {
		if existing.Email == p.Email {
			return domain.ErrPartnerExists
		}
	}
	m.partners[p.ID] = p
	return nil
}

func (m mockPartners) GetByID(_ context.Context, id string) (domain.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partners[id]
	if !ok {
		return domain.Partner{}, domain.ErrPartnerNotFound
	}
	return p, nil
}

func (m mockPartners) GetByEmail(_ context.Context, email string) (domain.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.partners {
		if p.Email == domain.NormalizeEmail(email) {
			return p, nil
		}
	}
	return domain.Partner{}, domain.ErrPartnerNotFound
}

func (m mockPartners) SetExternalCustomer(_ context.Context, id, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partners[id]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	p.ExternalCustomerID = customerID
	m.partners[id] = p
	return nil
}

func (m mockPartners) FlagFollowUp(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partners[id]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	p.NeedsFollowUp = true
	m.partners[id] = p
	return nil
}

func (m mockPartners) ClearFollowUp(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partners[id]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	p.NeedsFollowUp = false
	m.partners[id] = p
	return nil
}

type mockPayments struct{ *mockStore }

func (m mockPayments) Record(_ context.Context, p domain.Payment) (domain.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.payments[p.ExternalRef]; ok {
		return existing, false, nil
	}
	m.payments[p.ExternalRef] = p
	return p, true, nil
}

func (m mockPayments) GetByExternalRef(_ context.Context, ref string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[ref]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (m mockPayments) ListByCampaign(_ context.Context, campaignID string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.CampaignID == campaignID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m mockPayments) UpdateStatus(_ context.Context, ref string, from, to domain.PaymentStatus) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[ref]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if p.Status != from {
		return p, domain.ErrStalePayment
	}
	p.Status = to
	m.payments[ref] = p
	return p, nil
}

func (m mockPayments) Revenue(_ context.Context, _ domain.RevenueFilter) ([]domain.RevenueTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := make(map[string]domain.RevenueTotal)
	for _, p := range m.payments {
		if p.Status != domain.PaymentSucceeded {
			continue
		}
		t := totals[p.Currency]
		t.Currency = p.Currency
		t.Amount += p.Amount
		t.Count++
		totals[p.Currency] = t
	}
	out := make([]domain.RevenueTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, t)
	}
	return out, nil
}

type mockTestimonies struct {
	created []domain.Testimony
}

func (m *mockTestimonies) Create(_ context.Context, t domain.Testimony) error {
	m.created = append(m.created, t)
	return nil
}

type mockProcessor struct {
	mu            sync.Mutex
	seq           int
	intents       map[string]domain.PaymentIntent
	periodEnd     time.Time
	cancelled     []string
	cancelErr     map[string]error
	subscribeErr  error
	createdPrices []domain.PriceParams
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{
		intents:   make(map[string]domain.PaymentIntent),
		cancelErr: make(map[string]error),
		periodEnd: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockProcessor) next(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *mockProcessor) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next("cus"), nil
}

func (m *mockProcessor) CreatePrice(_ context.Context, params domain.PriceParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdPrices = append(m.createdPrices, params)
	return m.next("price"), nil
}

func (m *mockProcessor) CreateSubscription(_ context.Context, _, _ string, _ map[string]string) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return domain.Subscription{}, m.subscribeErr
	}
	id := m.next("sub")
	return domain.Subscription{ID: id, Status: "incomplete", ClientSecret: id + "_secret", CurrentPeriodEnd: m.periodEnd}, nil
}

func (m *mockProcessor) CancelSubscription(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cancelErr[id]; err != nil {
		return err
	}
	m.cancelled = append(m.cancelled, id)
	return nil
}

func (m *mockProcessor) CancelSubscriptions(ctx context.Context, ids []string) map[string]error {
	failures := make(map[string]error)
	for _, id := range ids {
		if err := m.CancelSubscription(ctx, id); err != nil {
			failures[id] = err
		}
	}
	return failures
}

func (m *mockProcessor) CreatePaymentIntent(_ context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next("pi")
	intent := domain.PaymentIntent{
		ID:           id,
		Status:       "requires_payment_method",
		ClientSecret: id + "_secret",
		Amount:       params.Amount,
		Currency:     params.Currency,
		CustomerID:   params.CustomerID,
		Metadata:     params.Metadata,
	}
	m.intents[id] = intent
	return intent, nil
}

func (m *mockProcessor) GetPaymentIntent(_ context.Context, id string) (domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return domain.PaymentIntent{}, &domain.UpstreamError{Op: "get payment intent", Err: errors.New("no such intent")}
	}
	return intent, nil
}

func (m *mockProcessor) succeed(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent := m.intents[id]
	intent.Status = domain.IntentSucceeded
	m.intents[id] = intent
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (m *mockPublisher) Publish(_ context.Context, e domain.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) kinds() []domain.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventKind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}
