package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/cache"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/payment"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ===== IN-MEMORY REPOSITORY =====

type memoryRepository struct {
	mu sync.Mutex

	assessments     map[string]*models.Assessment
	transactions    map[string]*models.Transaction
	gatewayEvents   map[uint]*models.PaymentGatewayEvent
	profiles        map[string]*models.Profile
	userRoles       map[string][]models.Role
	assessorReqs    map[string]*models.AssessorRequest
	questions       []*models.Question
	nextGatewayID   uint
	assessmentErr   error
	transactionErr  error
	roleLookupErr   error
	profileWriteErr error
	transactionRuns int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		assessments:   make(map[string]*models.Assessment),
		transactions:  make(map[string]*models.Transaction),
		gatewayEvents: make(map[uint]*models.PaymentGatewayEvent),
		profiles:      make(map[string]*models.Profile),
		userRoles:     make(map[string][]models.Role),
		assessorReqs:  make(map[string]*models.AssessorRequest),
	}
}

func (r *memoryRepository) Assessment() repositories.AssessmentRepository   { return memAssessments{r} }
func (r *memoryRepository) Transaction() repositories.TransactionRepository { return memTransactions{r} }
func (r *memoryRepository) GatewayEvent() repositories.GatewayEventRepository {
	return memGatewayEvents{r}
}
func (r *memoryRepository) Profile() repositories.ProfileRepository   { return memProfiles{r} }
func (r *memoryRepository) UserRole() repositories.UserRoleRepository { return memUserRoles{r} }
func (r *memoryRepository) AssessorRequest() repositories.AssessorRequestRepository {
	return memAssessorRequests{r}
}
func (r *memoryRepository) Question() repositories.QuestionRepository { return memQuestions{r} }

func (r *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.mu.Lock()
	r.transactionRuns++
	r.mu.Unlock()
	return fn(r)
}

func (r *memoryRepository) Ping(ctx context.Context) error { return nil }
func (r *memoryRepository) Close() error                   { return nil }

func (r *memoryRepository) addProfile(id, email string) *models.Profile {
	profile := &models.Profile{ID: id, FullName: "User " + id, Email: email}
	r.profiles[id] = profile
	return profile
}

func (r *memoryRepository) addQuestions(skill string, correct ...int) []*models.Question {
	var added []*models.Question
	for i, answer := range correct {
		q := &models.Question{
			ID:            skill + "-q" + string(rune('1'+i)),
			Skill:         skill,
			QuestionText:  "Question",
			Options:       []byte(`["a","b","c","d"]`),
			CorrectAnswer: answer,
		}
		r.questions = append(r.questions, q)
		added = append(added, q)
	}
	return added
}

type memAssessments struct{ r *memoryRepository }

func (m memAssessments) CreateIfAbsent(ctx context.Context, a *models.Assessment) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.assessmentErr != nil {
		return false, m.r.assessmentErr
	}
	for _, existing := range m.r.assessments {
		if existing.PaymentRequestID != nil && a.PaymentRequestID != nil && *existing.PaymentRequestID == *a.PaymentRequestID {
			return false, nil
		}
	}
	if err := a.BeforeCreate(nil); err != nil {
		return false, err
	}
	a.CreatedAt = time.Now()
	stored := *a
	m.r.assessments[a.ID] = &stored
	return true, nil
}

func (m memAssessments) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	a, ok := m.r.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (m memAssessments) GetByPaymentRequestID(ctx context.Context, paymentRequestID string) (*models.Assessment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, a := range m.r.assessments {
		if a.PaymentRequestID != nil && *a.PaymentRequestID == paymentRequestID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memAssessments) UpdateFromStatus(ctx context.Context, a *models.Assessment, from models.AssessmentStatus) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	stored, ok := m.r.assessments[a.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Status != from {
		return repositories.ErrStaleStatus
	}
	copied := *a
	m.r.assessments[a.ID] = &copied
	return nil
}

func (m memAssessments) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var matched []*models.Assessment
	for _, a := range m.r.assessments {
		if filters.UserID != nil && a.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		if filters.Skill != nil && !strings.EqualFold(a.Skill, *filters.Skill) {
			continue
		}
		copied := *a
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if filters.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filters.Offset:]
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (m memAssessments) CountByStatus(ctx context.Context) (map[models.AssessmentStatus]int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	counts := make(map[models.AssessmentStatus]int64)
	for _, a := range m.r.assessments {
		counts[a.Status]++
	}
	return counts, nil
}

// ListCertified mirrors the SQL join: rows without a profile are dropped
func (m memAssessments) ListCertified(ctx context.Context) ([]repositories.CertifiedAssessment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var rows []repositories.CertifiedAssessment
	for _, a := range m.r.assessments {
		profile, ok := m.r.profiles[a.UserID]
		if !ok || !a.IsCertified() {
			continue
		}
		rows = append(rows, repositories.CertifiedAssessment{
			UserID:         a.UserID,
			FullName:       profile.FullName,
			Email:          profile.Email,
			Skill:          a.Skill,
			ApprovedAt:     a.ApprovedAt,
			CertificateURL: a.CertificateURL,
			BadgeURL:       a.BadgeURL,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FullName != rows[j].FullName {
			return rows[i].FullName < rows[j].FullName
		}
		return rows[i].Skill < rows[j].Skill
	})
	return rows, nil
}

type memTransactions struct{ r *memoryRepository }

func (m memTransactions) Create(ctx context.Context, t *models.Transaction) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.transactionErr != nil {
		return m.r.transactionErr
	}
	if _, exists := m.r.transactions[t.PaymentID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if err := t.BeforeCreate(nil); err != nil {
		return err
	}
	t.CreatedAt = time.Now()
	copied := *t
	m.r.transactions[t.PaymentID] = &copied
	return nil
}

func (m memTransactions) GetByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	t, ok := m.r.transactions[paymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *t
	return &copied, nil
}

func (m memTransactions) List(ctx context.Context, limit, offset int) ([]*models.Transaction, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var all []*models.Transaction
	for _, t := range m.r.transactions {
		copied := *t
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PaymentID < all[j].PaymentID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

type memGatewayEvents struct{ r *memoryRepository }

func (m memGatewayEvents) Create(ctx context.Context, event *models.PaymentGatewayEvent) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.nextGatewayID++
	event.ID = m.r.nextGatewayID
	copied := *event
	m.r.gatewayEvents[event.ID] = &copied
	return nil
}

func (m memGatewayEvents) MarkStatus(ctx context.Context, id uint, status models.GatewayEventStatus, errMsg *string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	event, ok := m.r.gatewayEvents[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	event.Status = status
	event.Error = errMsg
	return nil
}

type memProfiles struct{ r *memoryRepository }

func (m memProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.roleLookupErr != nil {
		return nil, m.r.roleLookupErr
	}
	p, ok := m.r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (m memProfiles) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, p := range m.r.profiles {
		if strings.EqualFold(p.Email, email) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memProfiles) Upsert(ctx context.Context, profile *models.Profile) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.profileWriteErr != nil {
		return m.r.profileWriteErr
	}
	for id, other := range m.r.profiles {
		if id != profile.ID && strings.EqualFold(other.Email, profile.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if stored, ok := m.r.profiles[profile.ID]; ok {
		stored.Email = profile.Email
		stored.UpdatedAt = time.Now()
		return nil
	}
	copied := *profile
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	m.r.profiles[profile.ID] = &copied
	return nil
}

func (m memProfiles) SetAssessorAssigned(ctx context.Context, userID string, at time.Time) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	p, ok := m.r.profiles[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.AssessorAssignedAt = &at
	return nil
}

type memUserRoles struct{ r *memoryRepository }

func (m memUserRoles) ListByUser(ctx context.Context, userID string) ([]models.Role, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.roleLookupErr != nil {
		return nil, m.r.roleLookupErr
	}
	return append([]models.Role(nil), m.r.userRoles[userID]...), nil
}

func (m memUserRoles) Add(ctx context.Context, userID string, role models.Role) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, existing := range m.r.userRoles[userID] {
		if existing == role {
			return nil
		}
	}
	m.r.userRoles[userID] = append(m.r.userRoles[userID], role)
	return nil
}

type memAssessorRequests struct{ r *memoryRepository }

func (m memAssessorRequests) Create(ctx context.Context, request *models.AssessorRequest) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, existing := range m.r.assessorReqs {
		if existing.UserID == request.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if err := request.BeforeCreate(nil); err != nil {
		return err
	}
	copied := *request
	m.r.assessorReqs[request.ID] = &copied
	return nil
}

func (m memAssessorRequests) GetByID(ctx context.Context, id string) (*models.AssessorRequest, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	request, ok := m.r.assessorReqs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *request
	return &copied, nil
}

func (m memAssessorRequests) GetByUserID(ctx context.Context, userID string) (*models.AssessorRequest, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, request := range m.r.assessorReqs {
		if request.UserID == userID {
			copied := *request
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memAssessorRequests) List(ctx context.Context, filters repositories.AssessorRequestFilters) ([]*models.AssessorRequest, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var matched []*models.AssessorRequest
	for _, request := range m.r.assessorReqs {
		if filters.Status != nil && request.Status != *filters.Status {
			continue
		}
		copied := *request
		matched = append(matched, &copied)
	}
	return matched, int64(len(matched)), nil
}

func (m memAssessorRequests) Update(ctx context.Context, request *models.AssessorRequest) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.assessorReqs[request.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *request
	m.r.assessorReqs[request.ID] = &copied
	return nil
}

type memQuestions struct{ r *memoryRepository }

func (m memQuestions) ListBySkill(ctx context.Context, skill string) ([]*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var matched []*models.Question
	for _, q := range m.r.questions {
		if strings.EqualFold(q.Skill, skill) {
			matched = append(matched, q)
		}
	}
	return matched, nil
}

func (m memQuestions) CountBySkill(ctx context.Context, skill string) (int64, error) {
	questions, err := m.ListBySkill(ctx, skill)
	return int64(len(questions)), err
}

func (m memQuestions) CreateBatch(ctx context.Context, questions []*models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.questions = append(m.r.questions, questions...)
	return nil
}

func (m memQuestions) DeleteBySkill(ctx context.Context, skill string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	kept := m.r.questions[:0]
	for _, q := range m.r.questions {
		if !strings.EqualFold(q.Skill, skill) {
			kept = append(kept, q)
		}
	}
	m.r.questions = kept
	return nil
}

// ===== CACHE =====

// memoryCache round-trips values through JSON the way the Redis cache does
type memoryCache struct {
	mu      sync.Mutex
	locks   map[string]bool
	values  map[string][]byte
	lockErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{locks: make(map[string]bool), values: make(map[string][]byte)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}


func (c *memoryCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lockErr != nil {
		return false, c.lockErr
	}
	if c.locks[key] {
		return false, nil
	}
	c.locks[key] = true
	return true, nil
}

func (c *memoryCache) ReleaseLock(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
	return nil
}

// ===== TESTIFY MOCKS =====

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentRequest(ctx context.Context, in payment.CreateRequest) (*payment.PaymentRequest, error) {
	args := m.Called(ctx, in)
	if pr, ok := args.Get(0).(*payment.PaymentRequest); ok {
		return pr, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) GetPaymentRequest(ctx context.Context, paymentRequestID string) (*payment.PaymentRequest, error) {
	args := m.Called(ctx, paymentRequestID)
	if pr, ok := args.Get(0).(*payment.PaymentRequest); ok {
		return pr, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	args := m.Called(ctx, token)
	if identity, ok := args.Get(0).(*auth.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}
