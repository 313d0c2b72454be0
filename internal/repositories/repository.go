package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository interface tổng hợp tất cả các repository interfaces
type Repository interface {
	// Session domain
	Session() SessionRepository
	SessionStudent() SessionStudentRepository

	// Attempt domain
	Attempt() AttemptRepository

	// User domain (read-only, backed by the Casdoor directory)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err is a record-not-found from the
// database layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
