package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
)

// In-memory repository backing the service tests. Behaves like the postgres
// implementation for the operations the services exercise.
type mockRepository struct {
	sessions *mockSessionRepo
	students *mockStudentRepo
	attempts *mockAttemptRepo
	users    *mockUserRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sessions: &mockSessionRepo{sessions: make(map[uint]*models.ExamSession)},
		students: &mockStudentRepo{entries: make(map[uint]map[string]*models.SessionStudent)},
		attempts: newMockAttemptRepo(),
		users:    &mockUserRepo{users: make(map[string]*models.User), roles: make(map[string]models.UserRole)},
	}
}

func (m *mockRepository) Session() repositories.SessionRepository               { return m.sessions }
func (m *mockRepository) SessionStudent() repositories.SessionStudentRepository { return m.students }
func (m *mockRepository) Attempt() repositories.AttemptRepository               { return m.attempts }
func (m *mockRepository) User() repositories.UserRepository                     { return m.users }
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== SESSIONS =====

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[uint]*models.ExamSession
}

func (r *mockSessionRepo) add(s *models.ExamSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *mockSessionRepo) GetByID(ctx context.Context, id uint) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *mockSessionRepo) GetByCode(ctx context.Context, code string) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSessionRepo) GetByJoinToken(ctx context.Context, token string) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.JoinToken == token {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSessionRepo) GetWithQuestions(ctx context.Context, id uint) (*models.ExamSession, error) {
	return r.GetByID(ctx, id)
}

func (r *mockSessionRepo) LockForStart(ctx context.Context, id uint) (*models.ExamSession, error) {
	return r.GetByID(ctx, id)
}

func (r *mockSessionRepo) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	return nil, 0, nil
}

// ===== WHITELIST =====

type mockStudentRepo struct {
	mu      sync.Mutex
	entries map[uint]map[string]*models.SessionStudent
}

func (r *mockStudentRepo) Assign(ctx context.Context, student *models.SessionStudent) error {
	return r.AssignBatch(ctx, []*models.SessionStudent{student})
}

func (r *mockStudentRepo) AssignBatch(ctx context.Context, students []*models.SessionStudent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range students {
		if r.entries[s.SessionID] == nil {
			r.entries[s.SessionID] = make(map[string]*models.SessionStudent)
		}
		email := strings.ToLower(s.Email)
		if _, exists := r.entries[s.SessionID][email]; !exists {
			r.entries[s.SessionID][email] = s
		}
	}
	return nil
}

func (r *mockStudentRepo) Remove(ctx context.Context, sessionID uint, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sessionID][email]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.entries[sessionID], email)
	return nil
}

func (r *mockStudentRepo) ListBySession(ctx context.Context, sessionID uint) ([]*models.SessionStudent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SessionStudent
	for _, s := range r.entries[sessionID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *mockStudentRepo) ExistsBySessionAndEmail(ctx context.Context, sessionID uint, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[sessionID][strings.ToLower(email)]
	return ok, nil
}

// ===== ATTEMPTS =====

type mockAttemptRepo struct {
	mu        sync.Mutex
	attempts  map[uint]*models.ExamAttempt
	questions map[uint][]*models.AttemptQuestion // by attempt ID
	answers   map[uint]*models.AttemptAnswer     // by attempt question ID
	nextID    uint
	nextQID   uint
	nextAID   uint
}

func newMockAttemptRepo() *mockAttemptRepo {
	return &mockAttemptRepo{
		attempts:  make(map[uint]*models.ExamAttempt),
		questions: make(map[uint][]*models.AttemptQuestion),
		answers:   make(map[uint]*models.AttemptAnswer),
	}
}

func (r *mockAttemptRepo) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	attempt.ID = r.nextID
	attempt.CreatedAt = time.Now()
	copied := *attempt
	r.attempts[attempt.ID] = &copied
	return nil
}

func (r *mockAttemptRepo) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *attempt
	copied.Questions = nil
	r.attempts[attempt.ID] = &copied
	return nil
}

func (r *mockAttemptRepo) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *mockAttemptRepo) GetWithQuestions(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	attempt, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.questions[id]
	questions := make([]models.AttemptQuestion, 0, len(stored))
	for _, q := range stored {
		copied := *q
		if ans, ok := r.answers[q.ID]; ok {
			ansCopy := *ans
			copied.Answer = &ansCopy
		}
		questions = append(questions, copied)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].OrderIndex < questions[j].OrderIndex })
	attempt.Questions = questions
	return attempt, nil
}

func (r *mockAttemptRepo) GetInProgress(ctx context.Context, sessionID uint, email string) (*models.ExamAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.SessionID == sessionID && a.StudentEmail == email && a.Status == models.AttemptInProgress {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAttemptRepo) MaxAttemptNo(ctx context.Context, sessionID uint, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, a := range r.attempts {
		if a.SessionID == sessionID && a.StudentEmail == email && a.AttemptNo > max {
			max = a.AttemptNo
		}
	}
	return max, nil
}

func (r *mockAttemptRepo) CountCompleted(ctx context.Context, sessionID uint, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.attempts {
		if a.SessionID == sessionID && a.StudentEmail == email && a.Status != models.AttemptInProgress {
			count++
		}
	}
	return count, nil
}

func (r *mockAttemptRepo) ListBySession(ctx context.Context, sessionID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ExamAttempt
	for _, a := range r.attempts {
		if a.SessionID != sessionID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockAttemptRepo) ListExpiredInProgress(ctx context.Context, before time.Time, limit int) ([]*models.ExamAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ExamAttempt
	for _, a := range r.attempts {
		if a.Status == models.AttemptInProgress && a.ExpiresAt.Before(before) {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *mockAttemptRepo) SaveQuestions(ctx context.Context, questions []*models.AttemptQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range questions {
		r.nextQID++
		q.ID = r.nextQID
		copied := *q
		r.questions[q.AttemptID] = append(r.questions[q.AttemptID], &copied)
	}
	return nil
}

func (r *mockAttemptRepo) UpdateQuestion(ctx context.Context, question *models.AttemptQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.questions[question.AttemptID] {
		if q.ID == question.ID {
			copied := *question
			copied.Answer = nil
			r.questions[question.AttemptID][i] = &copied
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockAttemptRepo) SaveAnswer(ctx context.Context, answer *models.AttemptAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.answers[answer.AttemptQuestionID]; ok {
		answer.ID = existing.ID
	} else {
		r.nextAID++
		answer.ID = r.nextAID
	}
	copied := *answer
	r.answers[answer.AttemptQuestionID] = &copied
	return nil
}

func (r *mockAttemptRepo) GetSessionStats(ctx context.Context, sessionID uint) (*repositories.SessionAttemptStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repositories.SessionAttemptStats{
		StatusBreakdown: make(map[models.AttemptStatus]int),
	}
	emails := make(map[string]bool)
	for _, a := range r.attempts {
		if a.SessionID != sessionID {
			continue
		}
		stats.TotalAttempts++
		stats.StatusBreakdown[a.Status]++
		emails[a.StudentEmail] = true
	}
	stats.DistinctStudents = len(emails)
	return stats, nil
}

// ===== USERS =====

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	roles map[string]models.UserRole // by email
}

func (r *mockUserRepo) addUser(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	r.roles[strings.ToLower(u.Email)] = u.Role
}

func (r *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.roles[strings.ToLower(email)]
	return ok, nil
}

func (r *mockUserRepo) ExistsStudentByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[strings.ToLower(email)] == models.RoleStudent, nil
}

func (r *mockUserRepo) ExistsTeacherByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[strings.ToLower(email)] == models.RoleTeacher, nil
}

func (r *mockUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return ok && u.Role == role, nil
}

// ===== NOTIFICATIONS =====

// mockNotifier captures OTP mails so tests can read back the issued code.
type mockNotifier struct {
	mu        sync.Mutex
	otps      map[string]string // by email
	submitted []*models.ExamAttempt
	results   []*models.ExamAttempt
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{otps: make(map[string]string)}
}

func (n *mockNotifier) SendOtpMail(ctx context.Context, email, sessionName, otp string, ttl time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps[email] = otp
	return nil
}

func (n *mockNotifier) SendResultMail(ctx context.Context, attempt *models.ExamAttempt, sessionName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, attempt)
	return nil
}

func (n *mockNotifier) PublishAttemptSubmitted(ctx context.Context, attempt *models.ExamAttempt) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, attempt)
	return nil
}

func (n *mockNotifier) lastOtp(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.otps[email]
}
