package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/choreauction/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := scanner.Scan(
		&m.ID, &m.FamilyID, &m.Name, &m.Age, &m.Points, &m.WeeklyGoal,
		&m.SortOrder, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const memberCols = `id, family_id, name, age, points, weekly_goal, sort_order, created_at, updated_at`

func (s *FamilyMemberStore) Create(familyID int64, name string, age, points, weeklyGoal int) (*model.FamilyMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO family_members (family_id, name, age, points, weekly_goal) VALUES (?, ?, ?, ?, ?)`,
		familyID, name, age, points, weeklyGoal,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// GetByIDTx reads a member inside the caller's transaction.
func (s *FamilyMemberStore) GetByIDTx(tx *sql.Tx, id int64) (*model.FamilyMember, error) {
	row := tx.QueryRow(`SELECT `+memberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) List(familyID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? ORDER BY sort_order ASC, name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// CountByFamily returns the number of members in a family. The advisor uses
// it as the competition denominator, so callers must guard against zero.
func (s *FamilyMemberStore) CountByFamily(familyID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM family_members WHERE family_id = ?`, familyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}
