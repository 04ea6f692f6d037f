package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"modelcast-server/internal/domain"
	"modelcast-server/internal/infra"
	"modelcast-server/internal/middleware"
	"modelcast-server/internal/stripe"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

var errProviderDown = errors.New("provider down")

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubStore dispatches on query content the way the real runner dispatches on
// markers, backing every handler with one in-memory profile.
type stubStore struct {
	mu sync.Mutex

	credits  int
	plan     string
	missing  bool // profile row absent until bootstrap
	loadErr  error
	spendErr error

	ledgerErr error
	applyErr  error

	ledgerInserts []string
	uploads       [][3]string
	usageEvents   []string
	expired       [][2]string
	deletedRows   []string
}

func (s *stubStore) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.Contains(query, "insert into credit_history"):
		if s.ledgerErr != nil {
			return pgconn.CommandTag{}, s.ledgerErr
		}
		s.ledgerInserts = append(s.ledgerInserts, args[0].(string))
		return pgconn.CommandTag{}, nil
	case strings.Contains(query, "delete from credit_history"):
		return pgconn.CommandTag{}, nil
	case strings.Contains(query, "insert into uploads"):
		s.uploads = append(s.uploads, [3]string{args[0].(string), args[1].(string), args[2].(string)})
		return pgconn.CommandTag{}, nil
	case strings.Contains(query, "delete from uploads"):
		s.deletedRows = append(s.deletedRows, args[0].(string))
		return pgconn.CommandTag{}, nil
	case strings.Contains(query, "insert into usage_events"):
		s.usageEvents = append(s.usageEvents, args[1].(string))
		return pgconn.CommandTag{}, nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unsupported exec: %s", query)
}

func (s *stubStore) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.Contains(query, "insert into profiles"):
		if s.loadErr != nil {
			return stubRow{scan: func(...any) error { return s.loadErr }}
		}
		if s.missing {
			s.missing = false
			s.credits = args[1].(int)
			if s.plan == "" {
				s.plan = "free"
			}
		}
		return s.profileRow()
	case strings.Contains(query, "select id, credits"):
		if s.loadErr != nil {
			return stubRow{scan: func(...any) error { return s.loadErr }}
		}
		if s.missing {
			return stubRow{}
		}
		return s.profileRow()
	case strings.Contains(query, "credits = credits - 1"):
		if s.spendErr != nil {
			return stubRow{scan: func(...any) error { return s.spendErr }}
		}
		if s.credits <= 0 {
			return stubRow{}
		}
		s.credits--
		remaining := s.credits
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*int) = remaining
			return nil
		}}
	case strings.Contains(query, "from target"):
		if s.applyErr != nil {
			return stubRow{scan: func(...any) error { return s.applyErr }}
		}
		credits := s.credits
		plan := s.plan
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*int) = credits
			*dest[1].(*string) = plan
			return nil
		}}
	}
	return stubRow{scan: func(...any) error { return fmt.Errorf("unsupported query: %s", query) }}
}

func (s *stubStore) profileRow() pgx.Row {
	credits := s.credits
	plan := s.plan
	if plan == "" {
		plan = "free"
	}
	p := domain.ParsePlan(plan)
	now := time.Now()
	return stubRow{scan: func(dest ...any) error {
		*dest[0].(*string) = testUserID
		*dest[1].(*int) = credits
		*dest[2].(*string) = plan
		*dest[3].(*bool) = p.IsPro()
		*dest[4].(*bool) = p.IsStudio()
		*dest[5].(*time.Time) = now
		*dest[6].(*time.Time) = now
		return nil
	}}
}

func (s *stubStore) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(query, "from uploads") {
		return &uploadRows{rows: s.expired}, nil
	}
	return nil, fmt.Errorf("unsupported query: %s", query)
}

type uploadRows struct {
	rows [][2]string
	idx  int
}

func (r *uploadRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *uploadRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	*dest[0].(*string) = row[0]
	*dest[1].(*string) = row[1]
	return nil
}

func (r *uploadRows) Close()                                       {}
func (r *uploadRows) Err() error                                   { return nil }
func (r *uploadRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *uploadRows) Conn() *pgx.Conn                              { return nil }
func (r *uploadRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *uploadRows) RawValues() [][]byte                          { return nil }
func (r *uploadRows) Values() ([]any, error)                       { return nil, errors.New("values not supported") }

type stubRunner struct {
	output string
	err    error
	calls  []string
}

func (s *stubRunner) Run(ctx context.Context, model string, inputs map[string]any) (string, error) {
	s.calls = append(s.calls, model)
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

type stubCheckout struct {
	session    *stripe.CheckoutSession
	createErr  error
	getErr     error
	lastParams stripe.CheckoutParams
}

func (s *stubCheckout) CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error) {
	s.lastParams = params
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.session, nil
}

func (s *stubCheckout) GetCheckoutSession(ctx context.Context, sessionID string, expandLineItems bool) (*stripe.CheckoutSession, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.session, nil
}

type stubAssets struct {
	mu        sync.Mutex
	destroyed []string
	byToken   []string
	err       error
}

func (s *stubAssets) Destroy(ctx context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.destroyed = append(s.destroyed, publicID)
	return nil
}

func (s *stubAssets) DeleteByToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.byToken = append(s.byToken, token)
	return nil
}

func newTestApp(store *stubStore) *App {
	return &App{
		SQL:     store,
		Logger:  zerolog.Nop(),
		Config:  testConfig(),
		Catalog: domain.NewPlanCatalog("price_pro", "price_studio"),
	}
}

func testConfig() *infra.Config {
	return &infra.Config{
		JWTSecret:           "test-secret",
		SiteURL:             "https://modelcast.test",
		CronSecret:          "cron-secret",
		CloudinaryCloudName: "demo",
		CloudinaryAPIKey:    "key",
		CloudinaryAPISecret: "secret",
		FreeCredits:         3,
	}
}

func authedRequest(method, target string, body *strings.Reader) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), testUserID))
}
