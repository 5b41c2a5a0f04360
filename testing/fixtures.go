package testing

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain password of every fixture user
const TestPassword = "TestPass123!"

var fixtureSeq atomic.Int64

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a user with a unique email and TestPassword
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	return tf.createUser(models.UserRoleUser)
}

// CreateTestAdmin creates an administrator with TestPassword
func (tf *TestFixtures) CreateTestAdmin() (*models.User, error) {
	return tf.createUser(models.UserRoleAdmin)
}

func (tf *TestFixtures) createUser(role string) (*models.User, error) {
	// MinCost keeps bcrypt out of test timings
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	n := fixtureSeq.Add(1)
	user := &models.User{
		Name:         fmt.Sprintf("Test User %d", n),
		Email:        fmt.Sprintf("user.%d.%d@example.com", time.Now().UnixNano(), n),
		PasswordHash: string(hash),
		Role:         role,
		IsAdmin:      utils.ToPtr(role == models.UserRoleAdmin),
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestLead creates a lead owned by userID
func (tf *TestFixtures) CreateTestLead(userID uint, name, phone string) (*models.Lead, error) {
	lead := &models.Lead{
		UserID: userID,
		Name:   name,
		Email:  fmt.Sprintf("lead.%d@example.com", fixtureSeq.Add(1)),
		Phone:  phone,
		Status: models.LeadStatusNew,
	}
	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CreateTestScheduledCall plans a call at scheduledTime with an email reminder reminderMinutes
// ahead, sent to email
func (tf *TestFixtures) CreateTestScheduledCall(userID, leadID uint, scheduledTime time.Time, reminderMinutes int, email string) (*models.ScheduledCall, error) {
	call := &models.ScheduledCall{
		UserID:              userID,
		LeadID:              leadID,
		ScheduledTime:       scheduledTime.UTC(),
		DurationSeconds:     utils.DefaultCallDurationSeconds,
		Status:              models.ScheduledCallStatusScheduled,
		Notes:               "discuss renewal",
		EmailAddress:        email,
		ReminderTimeMinutes: reminderMinutes,
	}
	if err := tf.DB.DB.Create(call).Error; err != nil {
		return nil, fmt.Errorf("failed to create test scheduled call: %w", err)
	}
	return call, nil
}

// CreateTestCallHistory records a resolved call for leadID
func (tf *TestFixtures) CreateTestCallHistory(userID, leadID uint, start time.Time, outcome models.CallOutcome) (*models.CallHistory, error) {
	record := &models.CallHistory{
		UserID:          userID,
		LeadID:          leadID,
		ActualStartTime: start.UTC(),
		DurationSeconds: 90,
		Outcome:         outcome,
	}
	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create test call history: %w", err)
	}
	return record, nil
}
