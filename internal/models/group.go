package models

import "time"

// GroupRole is the role a member holds within a study group.
type GroupRole string

const (
	GroupRoleMember    GroupRole = "MEMBER"
	GroupRoleModerator GroupRole = "MODERATOR"
)

// StudyGroup is a member-capped collaboration space under a subject.
type StudyGroup struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	MaxMembers  int       `db:"max_members" json:"max_members"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// StudyGroupDetail enriches StudyGroup with an active member count.
type StudyGroupDetail struct {
	StudyGroup
	SubjectName string `db:"subject_name" json:"subject_name"`
	CreatorName string `db:"creator_name" json:"creator_name"`
	MemberCount int    `db:"member_count" json:"member_count"`
}

// Membership links a user to a study group. Leaving a group flips the
// active flag; the row is kept so a later rejoin reuses it.
type Membership struct {
	ID       string    `db:"id" json:"id"`
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     GroupRole `db:"role" json:"role"`
	Active   bool      `db:"active" json:"active"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// MembershipDetail enriches Membership with the member's name.
type MembershipDetail struct {
	Membership
	FullName string `db:"full_name" json:"full_name"`
}
