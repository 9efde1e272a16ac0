package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

// GroupRepository handles persistence of study groups and memberships.
// The capacity and uniqueness invariants are enforced here, inside the
// same transaction as the membership write.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID returns a study group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.StudyGroup, error) {
	const query = `SELECT id, name, description, subject_id, creator_id, max_members, active, created_at
        FROM study_groups WHERE id = $1`
	var group models.StudyGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateWithModerator inserts the group and its creator's moderator
// membership as a single transaction. A group with zero members is not
// a reachable end state.
func (r *GroupRepository) CreateWithModerator(ctx context.Context, group *models.StudyGroup) (err error) {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	group.Active = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const groupQuery = `INSERT INTO study_groups (id, name, description, subject_id, creator_id, max_members, active, created_at)
        VALUES (:id, :name, :description, :subject_id, :creator_id, :max_members, :active, :created_at)`
	if _, err = tx.NamedExecContext(ctx, groupQuery, group); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	const memberQuery = `INSERT INTO study_group_members (id, group_id, user_id, role, active, joined_at)
        VALUES ($1, $2, $3, $4, TRUE, $5)`
	if _, err = tx.ExecContext(ctx, memberQuery, uuid.NewString(), group.ID, group.CreatorID, models.GroupRoleModerator, group.CreatedAt); err != nil {
		return fmt.Errorf("insert creator membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}
	return nil
}

// Join adds the user to the group, reactivating a prior inactive row
// when one exists. The group row is locked for the duration of the
// transaction so the capacity check holds at commit time; the
// (group_id, user_id) unique constraint backs the row-per-pair rule.
func (r *GroupRepository) Join(ctx context.Context, groupID, userID string) (membership *models.Membership, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin join transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var group models.StudyGroup
	const lockQuery = `SELECT id, name, description, subject_id, creator_id, max_members, active, created_at
        FROM study_groups WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &group, lockQuery, groupID); err != nil {
		return nil, err
	}

	var existing models.Membership
	const memberQuery = `SELECT id, group_id, user_id, role, active, joined_at
        FROM study_group_members WHERE group_id = $1 AND user_id = $2`
	findErr := tx.GetContext(ctx, &existing, memberQuery, groupID, userID)
	if findErr != nil && findErr != sql.ErrNoRows {
		err = fmt.Errorf("find membership: %w", findErr)
		return nil, err
	}

	if findErr == nil && existing.Active {
		// Already an active member; joining again is a no-op.
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit join: %w", err)
		}
		return &existing, nil
	}

	var activeCount int
	const countQuery = `SELECT COUNT(*) FROM study_group_members WHERE group_id = $1 AND active`
	if err = tx.GetContext(ctx, &activeCount, countQuery, groupID); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if activeCount >= group.MaxMembers {
		err = appErrors.ErrGroupFull
		return nil, err
	}

	now := time.Now().UTC()
	if findErr == nil {
		const reactivateQuery = `UPDATE study_group_members SET active = TRUE, joined_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, reactivateQuery, existing.ID, now); err != nil {
			return nil, fmt.Errorf("reactivate membership: %w", err)
		}
		existing.Active = true
		existing.JoinedAt = now
		membership = &existing
	} else {
		membership = &models.Membership{
			ID:       uuid.NewString(),
			GroupID:  groupID,
			UserID:   userID,
			Role:     models.GroupRoleMember,
			Active:   true,
			JoinedAt: now,
		}
		const insertQuery = `INSERT INTO study_group_members (id, group_id, user_id, role, active, joined_at)
            VALUES (:id, :group_id, :user_id, :role, :active, :joined_at)`
		if _, err = tx.NamedExecContext(ctx, insertQuery, membership); err != nil {
			if isUniqueViolation(err) {
				err = appErrors.ErrDuplicateMember
			} else {
				err = fmt.Errorf("insert membership: %w", err)
			}
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}
	return membership, nil
}

// Deactivate flips the caller's membership inactive. Reports whether a
// row was updated; absence is not an error.
func (r *GroupRepository) Deactivate(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `UPDATE study_group_members SET active = FALSE WHERE group_id = $1 AND user_id = $2 AND active`
	res, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate membership: %w", err)
	}
	return affected > 0, nil
}

// HasActiveMembership reports whether the user is an active member.
func (r *GroupRepository) HasActiveMembership(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `SELECT 1 FROM study_group_members WHERE group_id = $1 AND user_id = $2 AND active LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// HasAnyMembership reports whether any membership row exists for the
// pair, active or not. AddExternalMember rejects on historical rows.
func (r *GroupRepository) HasAnyMembership(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `SELECT 1 FROM study_group_members WHERE group_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// InsertMember inserts a membership row directly. Used for invites; the
// unique constraint rejects races with a concurrent insert.
func (r *GroupRepository) InsertMember(ctx context.Context, membership *models.Membership) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	if membership.JoinedAt.IsZero() {
		membership.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO study_group_members (id, group_id, user_id, role, active, joined_at)
        VALUES (:id, :group_id, :user_id, :role, :active, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, membership); err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrDuplicateMember
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// CountActiveMembers returns the number of active memberships.
func (r *GroupRepository) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM study_group_members WHERE group_id = $1 AND active`
	var count int
	if err := r.db.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// ListMembers returns a group's active members with names.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]models.MembershipDetail, error) {
	const query = `SELECT m.id, m.group_id, m.user_id, m.role, m.active, m.joined_at, u.full_name
        FROM study_group_members m
        JOIN users u ON u.id = m.user_id
        WHERE m.group_id = $1 AND m.active
        ORDER BY m.joined_at`
	var members []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// ListBySubject returns a subject's active groups with member counts.
func (r *GroupRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.StudyGroupDetail, error) {
	const query = `SELECT g.id, g.name, g.description, g.subject_id, g.creator_id, g.max_members, g.active, g.created_at,
        s.name AS subject_name, u.full_name AS creator_name,
        (SELECT COUNT(*) FROM study_group_members m WHERE m.group_id = g.id AND m.active) AS member_count
        FROM study_groups g
        JOIN subjects s ON s.id = g.subject_id
        JOIN users u ON u.id = g.creator_id
        WHERE g.subject_id = $1 AND g.active
        ORDER BY g.created_at DESC`
	var groups []models.StudyGroupDetail
	if err := r.db.SelectContext(ctx, &groups, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject groups: %w", err)
	}
	return groups, nil
}

// ListByUser returns the active groups the user is an active member of.
func (r *GroupRepository) ListByUser(ctx context.Context, userID string) ([]models.StudyGroupDetail, error) {
	const query = `SELECT g.id, g.name, g.description, g.subject_id, g.creator_id, g.max_members, g.active, g.created_at,
        s.name AS subject_name, u.full_name AS creator_name,
        (SELECT COUNT(*) FROM study_group_members mm WHERE mm.group_id = g.id AND mm.active) AS member_count
        FROM study_group_members m
        JOIN study_groups g ON g.id = m.group_id
        JOIN subjects s ON s.id = g.subject_id
        JOIN users u ON u.id = g.creator_id
        WHERE m.user_id = $1 AND m.active AND g.active
        ORDER BY g.created_at DESC`
	var groups []models.StudyGroupDetail
	if err := r.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	return groups, nil
}
