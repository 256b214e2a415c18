package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"certo/internal/model"
	"certo/internal/repository"
)

type fakeSettlement struct {
	mu          sync.Mutex
	approveErr  error
	registerErr error
	keys        []string
	approved    []*big.Int
	registered  []RegistrationRequest
}

func (f *fakeSettlement) ApproveToken(ctx context.Context, key string, amount *big.Int) (*model.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	f.approved = append(f.approved, amount)
	return &model.Receipt{TransactionHash: "0xapprove", Status: "success"}, nil
}

func (f *fakeSettlement) RegisterSurvey(ctx context.Context, key string, req RegistrationRequest) (*model.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, req)
	return &model.Receipt{TransactionHash: "0xregister", Status: "success"}, nil
}

func newSurveyService(store *repository.MemoryStore, settlement SettlementClient) *SurveyService {
	svc := NewSurveyService(store, settlement, 6)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestPublish_NoPrize(t *testing.T) {
	store := repository.NewMemoryStore()
	fs := &fakeSettlement{}
	svc := newSurveyService(store, fs)

	s, err := svc.Publish(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s.ID == "" || s.Settlement.Status != model.SettlementNotRequired {
		t.Fatalf("unexpected survey: %+v", s)
	}
	if len(fs.keys) != 0 {
		t.Fatalf("settlement should not run without a prize")
	}
}

func TestPublish_InvalidDraftStoresNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newSurveyService(store, nil)
	draft := validDraft()
	draft.MinAmount, draft.MaxAmount = 4, 2

	if _, err := svc.Publish(context.Background(), draft); err == nil {
		t.Fatal("expected validation error")
	}
	all, _ := store.List(context.Background(), repository.SurveyFilter{})
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d surveys", len(all))
	}
}

func TestPublish_SettlementConfirmed(t *testing.T) {
	store := repository.NewMemoryStore()
	fs := &fakeSettlement{}
	svc := newSurveyService(store, fs)
	draft := validDraft()
	draft.Prize = 12.5

	s, err := svc.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s.Settlement.Status != model.SettlementConfirmed || s.Settlement.RegisterTx != "0xregister" {
		t.Fatalf("settlement = %+v", s.Settlement)
	}
	if fs.approved[0].String() != "12500000" {
		t.Fatalf("approved amount = %s", fs.approved[0])
	}
	reg := fs.registered[0]
	if reg.MaxResponses != 10 || reg.MinResponses != 1 || reg.ExpirationTime != draft.TimeLimit.Unix() {
		t.Fatalf("registration = %+v", reg)
	}

	stored, _ := store.GetByID(context.Background(), s.ID)
	if stored.Settlement.Status != model.SettlementConfirmed {
		t.Fatalf("stored settlement = %+v", stored.Settlement)
	}
}

func TestPublish_SettlementFailureThenRetry(t *testing.T) {
	store := repository.NewMemoryStore()
	fs := &fakeSettlement{registerErr: errors.New("relayer down")}
	svc := newSurveyService(store, fs)
	draft := validDraft()
	draft.Prize = 1

	s, err := svc.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("publish should succeed despite settlement failure: %v", err)
	}
	if s.Settlement.Status != model.SettlementFailed || s.Settlement.ApproveTx != "0xapprove" {
		t.Fatalf("settlement = %+v", s.Settlement)
	}

	fs.registerErr = nil
	retried, err := svc.RetrySettlement(context.Background(), s.ID, draft.Owner)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Settlement.Status != model.SettlementConfirmed || retried.Settlement.Attempts != 2 {
		t.Fatalf("settlement after retry = %+v", retried.Settlement)
	}
	// the approval from the first attempt is reused
	if len(fs.approved) != 1 {
		t.Fatalf("approve ran %d times", len(fs.approved))
	}
	want := []string{s.ID + "-1-approve", s.ID + "-1-register", s.ID + "-2-register"}
	for i, k := range want {
		if fs.keys[i] != k {
			t.Fatalf("idempotency key %d = %q, want %q", i, fs.keys[i], k)
		}
	}

	if _, err := svc.RetrySettlement(context.Background(), s.ID, draft.Owner); !errors.Is(err, ErrSettlementNotNeeded) {
		t.Fatalf("expected ErrSettlementNotNeeded, got %v", err)
	}
}

func TestPublish_SettlementDisabled(t *testing.T) {
	svc := newSurveyService(repository.NewMemoryStore(), nil)
	draft := validDraft()
	draft.Prize = 3

	s, err := svc.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s.Settlement.Status != model.SettlementDisabled {
		t.Fatalf("status = %s", s.Settlement.Status)
	}
}

func TestRetrySettlement_Forbidden(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newSurveyService(store, &fakeSettlement{approveErr: errors.New("boom")})
	draft := validDraft()
	draft.Prize = 1
	s, _ := svc.Publish(context.Background(), draft)

	if _, err := svc.RetrySettlement(context.Background(), s.ID, "someone-else"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAppendQuestions_KeepsIndices(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newSurveyService(store, nil)
	s, _ := svc.Publish(context.Background(), validDraft())

	updated, err := svc.AppendQuestions(context.Background(), s.ID, s.Owner, []QuestionDraft{
		{Question: "Favourite roast?", Options: []string{"Light", "Dark"}},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(updated.Questions) != 3 || updated.Questions[2].Index != 2 {
		t.Fatalf("questions = %+v", updated.Questions)
	}
	if updated.Questions[0].Question != s.Questions[0].Question {
		t.Fatal("existing questions changed")
	}

	if _, err := svc.AppendQuestions(context.Background(), s.ID, "intruder", []QuestionDraft{{Question: "q", Options: []string{"a"}}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDiscover(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newSurveyService(store, nil)
	ctx := context.Background()

	open, _ := svc.Publish(ctx, validDraft())

	worldDraft := validDraft()
	worldDraft.Name = "World only"
	worldDraft.WorldID = SelectorRequired
	worldDraft.Segmentation = []string{"student"}
	world, _ := svc.Publish(ctx, worldDraft)

	fullDraft := validDraft()
	fullDraft.Name = "Full"
	fullDraft.MinAmount, fullDraft.MaxAmount = 0, 1
	full, _ := svc.Publish(ctx, fullDraft)
	if err := store.CreateWithinQuota(ctx, &model.Answer{SurveyID: full.ID}, 1); err != nil {
		t.Fatalf("fill quota: %v", err)
	}

	listings, err := svc.Discover(ctx, &model.Participant{}, DiscoverFilter{})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	eligible := map[string]bool{}
	for _, l := range listings {
		eligible[l.Survey.ID] = l.Eligible
	}
	if !eligible[open.ID] || eligible[world.ID] {
		t.Fatalf("eligibility = %v", eligible)
	}

	listings, _ = svc.Discover(ctx, &model.Participant{}, DiscoverFilter{EligibleOnly: true})
	if len(listings) != 1 || listings[0].Survey.ID != open.ID {
		t.Fatalf("eligible only = %+v", listings)
	}
	listings, _ = svc.Discover(ctx, nil, DiscoverFilter{WorldIDOnly: true})
	if len(listings) != 1 || listings[0].Survey.ID != world.ID {
		t.Fatalf("world id only = %+v", listings)
	}
	listings, _ = svc.Discover(ctx, nil, DiscoverFilter{Segments: []string{"student"}})
	if len(listings) != 1 || listings[0].Survey.ID != world.ID {
		t.Fatalf("segment filter = %+v", listings)
	}

	svc.now = func() time.Time { return testNow.Add(72 * time.Hour) }
	listings, _ = svc.Discover(ctx, nil, DiscoverFilter{})
	if len(listings) != 0 {
		t.Fatalf("closed surveys listed: %d", len(listings))
	}
}

func TestSegments(t *testing.T) {
	svc := newSurveyService(repository.NewMemoryStore(), nil)
	ctx := context.Background()
	for _, tags := range [][]string{{"student", "latam"}, {"latam", "dev"}} {
		d := validDraft()
		d.Segmentation = tags
		if _, err := svc.Publish(ctx, d); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	got, err := svc.Segments(ctx)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	want := []string{"dev", "latam", "student"}
	if len(got) != len(want) {
		t.Fatalf("segments = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segments = %v, want %v", got, want)
		}
	}
}

// settlementWriteFails stores surveys but refuses settlement updates.
type settlementWriteFails struct {
	*repository.MemoryStore
}

func (s settlementWriteFails) SetSettlement(ctx context.Context, id string, settlement model.Settlement) error {
	return &repository.GatewayError{Op: "update", Collection: "surveys", Err: errors.New("connection reset")}
}

func TestPublish_SettlementStoreFailureKeepsSurvey(t *testing.T) {
	store := repository.NewMemoryStore()
	fs := &fakeSettlement{}
	svc := NewSurveyService(settlementWriteFails{store}, fs, 6)
	svc.now = func() time.Time { return testNow }
	draft := validDraft()
	draft.Prize = 3

	s, err := svc.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("publish should not fail on settlement storage: %v", err)
	}
	if s.Settlement.Status != model.SettlementConfirmed {
		t.Fatalf("settlement = %+v", s.Settlement)
	}

	stored, err := store.GetByID(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Settlement.Status != model.SettlementPending {
		t.Fatalf("stored settlement = %+v", stored.Settlement)
	}
}
