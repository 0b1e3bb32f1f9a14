package waitlist

import (
	"context"

	"github.com/akeren/clariolane-waitlist/internal/models"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

// OutcomeKind classifies one insert attempt.
type OutcomeKind int

const (
	OutcomeInserted OutcomeKind = iota
	OutcomeAlreadyExists
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInserted:
		return "inserted"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InsertOutcome is decided by the repository alone: callers never inspect driver errors.
// Entry is set for OutcomeInserted, Err for OutcomeFailed.
type InsertOutcome struct {
	Kind  OutcomeKind
	Entry *models.WaitlistEntry
	Err   error
}

func Inserted(entry *models.WaitlistEntry) InsertOutcome {
	return InsertOutcome{Kind: OutcomeInserted, Entry: entry}
}

func AlreadyExists() InsertOutcome {
	return InsertOutcome{Kind: OutcomeAlreadyExists}
}

func Failed(err error) InsertOutcome {
	return InsertOutcome{Kind: OutcomeFailed, Err: err}
}

type WaitlistRepository interface {
	// InsertEntry stores email once. A second insert of the same address yields
	// OutcomeAlreadyExists and leaves the table untouched.
	InsertEntry(ctx context.Context, email string) InsertOutcome
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) InsertEntry(ctx context.Context, email string) InsertOutcome {
	entry := &models.WaitlistEntry{Email: email}

	if err := wr.db.WithContext(ctx).Create(entry).Error; err != nil {
		if apperrors.IsDuplicateKeyError(err) {
			return AlreadyExists()
		}
		return Failed(apperrors.NewDatabaseError("unable to insert waitlist entry", err))
	}

	return Inserted(entry)
}
