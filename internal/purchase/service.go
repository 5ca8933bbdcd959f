package purchase

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
)

type Config struct {
	DB *sql.DB
}

// Service reads purchase facts written by the payment ledger. It never
// creates or removes them.
type Service struct {
	db *sql.DB
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

// HasPurchased reports whether the user holds a purchase fact for the course.
// An empty user id never has purchases.
func (s *Service) HasPurchased(ctx context.Context, userID, courseID string) (bool, error) {
	if userID == "" || courseID == "" {
		return false, nil
	}

	const stmt = `SELECT 1 FROM purchases WHERE user_id = $1 AND course_id = $2`

	var one int
	err := s.db.QueryRowContext(ctx, stmt, userID, courseID).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has purchased: user=%s course=%s: %w", userID, courseID, err)
	}

	return true, nil
}
