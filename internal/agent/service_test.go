package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"agentsouk/internal/apperr"
	"agentsouk/internal/logger"
	"agentsouk/internal/user"
	"agentsouk/internal/wallet"
	"agentsouk/internal/weather"
	"agentsouk/internal/webhook"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) GetOrCreateAccount(ctx context.Context, userID int) (*wallet.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Account), args.Error(1)
}

func (m *MockWalletRepo) Apply(ctx context.Context, userID int, entry wallet.Entry) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, entry)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletRepo) Transactions(ctx context.Context, userID int, limit, offset int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

type MockRunRepo struct {
	mock.Mock
}

func (m *MockRunRepo) CreateRun(ctx context.Context, run *Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepo) RunsByUser(ctx context.Context, userID, limit, offset int) ([]Run, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Run), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendLowBalanceAlert(ctx context.Context, email, name, balanceDisplay string) error {
	args := m.Called(ctx, email, name, balanceDisplay)
	return args.Error(0)
}

func account(balance int64) *wallet.Account {
	return &wallet.Account{ID: 1, UserID: 1, Balance: decimal.NewFromInt(balance), Currency: "AED"}
}

func jobPostInput() map[string]string {
	return map[string]string{
		"title": "Engineer", "company": "Acme", "description": "Build things",
		"seniority": "senior", "contract_type": "full-time", "location": "Dubai",
	}
}

func TestService_Run_Success(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)

		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		message, ok := payload["message"].(map[string]interface{})
		assert.True(t, ok)
		assert.Contains(t, message["text"], "title: Engineer")

		json.NewEncoder(w).Encode(map[string]string{"output": "JOB POST TEXT"})
	}))
	defer server.Close()

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(50), nil)
	walletRepo.On("Apply", mock.Anything, 1, mock.MatchedBy(func(e wallet.Entry) bool {
		return e.Amount.Equal(decimal.NewFromInt(-5)) &&
			e.Type == wallet.TypeAgentUsage &&
			e.AgentSlug != nil && *e.AgentSlug == "job-post-writer" &&
			e.IdempotencyKey != nil && *e.IdempotencyKey != ""
	})).Return(decimal.NewFromInt(45), nil)
	runRepo.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *Run) bool {
		return r.Status == RunStatusSuccess && r.AgentSlug == "job-post-writer"
	})).Return(nil)

	svc := NewService(runRepo, walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, nil, nil)
	resp, err := svc.Run(context.Background(), 1, "job-post-writer", RunRequest{Input: jobPostInput()})

	assert.NoError(t, err)
	assert.Equal(t, "JOB POST TEXT", resp.Output)
	assert.Equal(t, "output", resp.Variant)
	assert.Empty(t, resp.DebitError)
	assert.NotNil(t, resp.BalanceAfter)
	assert.True(t, resp.BalanceAfter.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, "45.00 AED", resp.BalanceDisplay)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	walletRepo.AssertExpectations(t)
	runRepo.AssertExpectations(t)
}

func TestService_Run_InsufficientBalance(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	walletRepo := new(MockWalletRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(2), nil)

	svc := NewService(new(MockRunRepo), walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, nil, nil)
	resp, err := svc.Run(context.Background(), 1, "job-post-writer", RunRequest{Input: jobPostInput()})

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInsufficient, apperr.KindOf(err))
	// No webhook call and no debit on a shortfall.
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
	walletRepo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Run_ValidationStopsBeforeWallet(t *testing.T) {
	walletRepo := new(MockWalletRepo)

	svc := NewService(new(MockRunRepo), walletRepo, new(MockUserRepo), webhook.NewClient("http://unused", time.Second), nil, nil, nil)
	resp, err := svc.Run(context.Background(), 1, "job-post-writer", RunRequest{Input: map[string]string{"title": "Engineer"}})

	assert.Nil(t, resp)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	walletRepo.AssertNotCalled(t, "GetOrCreateAccount", mock.Anything, mock.Anything)
}

func TestService_Run_UnknownAgent(t *testing.T) {
	svc := NewService(new(MockRunRepo), new(MockWalletRepo), new(MockUserRepo), webhook.NewClient("http://unused", time.Second), nil, nil, nil)
	_, err := svc.Run(context.Background(), 1, "nonexistent", RunRequest{})

	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestService_Run_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(50), nil)
	runRepo.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *Run) bool {
		return r.Status == RunStatusFailed
	})).Return(nil)

	svc := NewService(runRepo, walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, nil, nil)
	resp, err := svc.Run(context.Background(), 1, "job-post-writer", RunRequest{Input: jobPostInput()})

	assert.Nil(t, resp)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	// A failed run is never billed.
	walletRepo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	runRepo.AssertExpectations(t)
}

func TestService_Run_DebitFailureStillReturnsOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output": "GENERATED"})
	}))
	defer server.Close()

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(50), nil)
	walletRepo.On("Apply", mock.Anything, 1, mock.Anything).Return(decimal.Zero, errors.New("db down"))
	runRepo.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *Run) bool {
		return r.Status == RunStatusDebitFailed
	})).Return(nil)

	svc := NewService(runRepo, walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, nil, nil)
	resp, err := svc.Run(context.Background(), 1, "job-post-writer", RunRequest{Input: jobPostInput()})

	assert.NoError(t, err)
	assert.Equal(t, "GENERATED", resp.Output)
	assert.NotEmpty(t, resp.DebitError)
	assert.Nil(t, resp.BalanceAfter)
	runRepo.AssertExpectations(t)
}

func TestService_Run_LowBalanceAlert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output": "GENERATED"})
	}))
	defer server.Close()

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	userRepo := new(MockUserRepo)
	notifier := new(MockNotifier)

	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(7), nil)
	walletRepo.On("Apply", mock.Anything, 1, mock.Anything).Return(decimal.NewFromInt(2), nil)
	runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	userRepo.On("FindByID", mock.Anything, 1).Return(&user.User{ID: 1, Email: "u@example.com", Name: "U"}, nil)
	notifier.On("SendLowBalanceAlert", mock.Anything, "u@example.com", "U", "2.00 AED").Return(nil)

	svc := NewService(runRepo, walletRepo, userRepo, webhook.NewClient(server.URL, time.Second), nil, nil, notifier)
	resp, err := svc.Run(context.Background(), 1, "job-post-writer", RunRequest{Input: jobPostInput()})

	assert.NoError(t, err)
	assert.NotNil(t, resp.BalanceAfter)
	notifier.AssertExpectations(t)
}

func TestService_Run_WeatherEnrichment(t *testing.T) {
	weatherServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "Dubai", r.URL.Query().Get("q"))

		w.Write([]byte(`{"location":{"name":"Dubai"},"current":{"temp_c":41.5,"condition":{"text":"Sunny"}}}`))
	}))
	defer weatherServer.Close()

	hookServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		message := payload["message"].(map[string]interface{})
		assert.Contains(t, message["text"], "41.5C, Sunny")

		json.NewEncoder(w).Encode(map[string]string{"output": "WEATHER REPORT"})
	}))
	defer hookServer.Close()

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(50), nil)
	walletRepo.On("Apply", mock.Anything, 1, mock.MatchedBy(func(e wallet.Entry) bool {
		return e.Amount.Equal(decimal.NewFromInt(-3))
	})).Return(decimal.NewFromInt(47), nil)
	runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(runRepo, walletRepo, new(MockUserRepo),
		webhook.NewClient(hookServer.URL, time.Second),
		weather.NewClient(weatherServer.URL, "test-key"), nil, nil)
	resp, err := svc.Run(context.Background(), 1, "weather-reporter", RunRequest{Input: map[string]string{"city": "Dubai"}})

	assert.NoError(t, err)
	assert.Equal(t, "WEATHER REPORT", resp.Output)
	walletRepo.AssertExpectations(t)
}

func TestService_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output": "Tell me more about the outage."})
	}))
	defer server.Close()

	db, redisMock := redismock.NewClientMock()
	key := transcriptKey(1, "sess-1")
	redisMock.Regexp().ExpectRPush(key, `.*"role":"user".*`).SetVal(1)
	redisMock.ExpectExpire(key, transcriptTTL).SetVal(true)
	redisMock.Regexp().ExpectRPush(key, `.*"role":"assistant".*`).SetVal(2)
	redisMock.ExpectExpire(key, transcriptTTL).SetVal(true)
	redisMock.ExpectLRange(key, 0, -1).SetVal([]string{
		`{"role":"user","content":"API is down"}`,
		`{"role":"assistant","content":"Tell me more about the outage."}`,
	})

	walletRepo := new(MockWalletRepo)
	svc := NewService(new(MockRunRepo), walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, NewTranscriptStore(db), nil)

	resp, err := svc.Chat(context.Background(), 1, ChatRequest{SessionID: "sess-1", Message: "API is down"})

	assert.NoError(t, err)
	assert.Equal(t, "Tell me more about the outage.", resp.Reply)
	assert.Equal(t, 2, resp.Turns)
	// Chat turns are free.
	walletRepo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestService_Report(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		message := payload["message"].(map[string]interface{})
		assert.Contains(t, message["text"], "API is down")

		json.NewEncoder(w).Encode(map[string]string{"analysis": "ROOT CAUSE REPORT"})
	}))
	defer server.Close()

	db, redisMock := redismock.NewClientMock()
	key := transcriptKey(1, "sess-1")
	redisMock.ExpectLRange(key, 0, -1).SetVal([]string{
		`{"role":"user","content":"API is down"}`,
		`{"role":"assistant","content":"Tell me more."}`,
	})

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(50), nil)
	walletRepo.On("Apply", mock.Anything, 1, mock.MatchedBy(func(e wallet.Entry) bool {
		return e.Amount.Equal(decimal.NewFromInt(-10)) &&
			e.AgentSlug != nil && *e.AgentSlug == "incident-analyst"
	})).Return(decimal.NewFromInt(40), nil)
	runRepo.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *Run) bool {
		return r.Status == RunStatusSuccess && r.AgentSlug == "incident-analyst"
	})).Return(nil)

	svc := NewService(runRepo, walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, NewTranscriptStore(db), nil)
	resp, err := svc.Report(context.Background(), 1, "sess-1")

	assert.NoError(t, err)
	assert.Equal(t, "ROOT CAUSE REPORT", resp.Output)
	assert.Equal(t, "analysis", resp.Variant)
	assert.True(t, resp.Price.Equal(decimal.NewFromInt(10)))
	walletRepo.AssertExpectations(t)
	runRepo.AssertExpectations(t)
}

func TestService_Transcript(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	key := transcriptKey(1, "sess-1")
	redisMock.ExpectLRange(key, 0, -1).SetVal([]string{
		`{"role":"user","content":"API is down"}`,
	})

	svc := NewService(new(MockRunRepo), new(MockWalletRepo), new(MockUserRepo), webhook.NewClient("http://unused", time.Second), nil, NewTranscriptStore(db), nil)
	turns, err := svc.Transcript(context.Background(), 1, "sess-1")

	assert.NoError(t, err)
	assert.Len(t, turns, 1)
	assert.Equal(t, "user", turns[0].Role)
}

func TestService_Report_EmptyTranscript(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	redisMock.ExpectLRange(transcriptKey(1, "sess-empty"), 0, -1).SetVal([]string{})

	svc := NewService(new(MockRunRepo), new(MockWalletRepo), new(MockUserRepo), webhook.NewClient("http://unused", time.Second), nil, NewTranscriptStore(db), nil)
	resp, err := svc.Report(context.Background(), 1, "sess-empty")

	assert.Nil(t, resp)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestService_Run_MultipartUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.txt", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"output": "SUMMARY"})
	}))
	defer server.Close()

	walletRepo := new(MockWalletRepo)
	runRepo := new(MockRunRepo)
	walletRepo.On("GetOrCreateAccount", mock.Anything, 1).Return(account(50), nil)
	walletRepo.On("Apply", mock.Anything, 1, mock.MatchedBy(func(e wallet.Entry) bool {
		return e.Amount.Equal(decimal.NewFromInt(-4))
	})).Return(decimal.NewFromInt(46), nil)
	runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(runRepo, walletRepo, new(MockUserRepo), webhook.NewClient(server.URL, time.Second), nil, nil, nil)
	resp, err := svc.Run(context.Background(), 1, "doc-summarizer", RunRequest{
		Input:    map[string]string{"language": "en"},
		File:     strings.NewReader("the quick brown fox"),
		FileName: "report.txt",
	})

	assert.NoError(t, err)
	assert.Equal(t, "SUMMARY", resp.Output)
	walletRepo.AssertExpectations(t)
}
