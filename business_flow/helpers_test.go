package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amirphl/ring-crm/repository"
	testingutil "github.com/amirphl/ring-crm/testing"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

// recordingEmailProvider captures sent mail; it fails while failWith is set
type recordingEmailProvider struct {
	mu       sync.Mutex
	sent     []sentEmail
	failWith error
}

func (p *recordingEmailProvider) SendEmail(ctx context.Context, email, subject, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.sent = append(p.sent, sentEmail{To: email, Subject: subject, Body: message})
	return nil
}

func (p *recordingEmailProvider) setFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

func (p *recordingEmailProvider) Sent() []sentEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentEmail(nil), p.sent...)
}

var errSMTPDown = errors.New("smtp: connection refused")

type flowEnv struct {
	DB       *testingutil.TestDB
	Fixtures *testingutil.TestFixtures

	Users         repository.UserRepository
	Leads         repository.LeadRepository
	Contacts      repository.ContactRepository
	ScheduledCall repository.ScheduledCallRepository
	CallHistory   repository.CallHistoryRepository
	Payments      repository.PaymentRepository
	Audit         repository.AuditLogRepository
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	return &flowEnv{
		DB:            testDB,
		Fixtures:      testingutil.NewTestFixtures(testDB),
		Users:         repository.NewUserRepository(testDB.DB),
		Leads:         repository.NewLeadRepository(testDB.DB),
		Contacts:      repository.NewContactRepository(testDB.DB),
		ScheduledCall: repository.NewScheduledCallRepository(testDB.DB),
		CallHistory:   repository.NewCallHistoryRepository(testDB.DB),
		Payments:      repository.NewPaymentRepository(testDB.DB),
		Audit:         repository.NewAuditLogRepository(testDB.DB),
	}
}
