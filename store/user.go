package store

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/plugin/progression"
	"github.com/hrygo/studydeck/plugin/srs"
)

type User struct {
	ID int32

	// Standard fields
	CreatedTs  int64
	UpdatedTs  int64
	RowVersion int64

	// Domain specific fields
	Username      string
	FrequencyMode srs.FrequencyMode
	// Timezone is an IANA zone name; empty means the server default.
	Timezone string

	// Progress
	CurrentStreak int
	LongestStreak int
	// LastStudyDate is a progression.DateLayout date in the user's zone, empty if never studied.
	LastStudyDate    string
	ExperiencePoints int
	Coins            int
}

type FindUser struct {
	ID       *int32
	Username *string
	Limit    *int
}

type UpdateUser struct {
	ID int32
	// ExpectedVersion makes the update conditional on the current row version.
	ExpectedVersion *int64

	UpdatedTs        *int64
	FrequencyMode    *srs.FrequencyMode
	Timezone         *string
	CurrentStreak    *int
	LongestStreak    *int
	LastStudyDate    *string
	ExperiencePoints *int
	Coins            *int
}

type DeleteUser struct {
	ID int32
}

// Progress returns the streak and reward state of the user.
func (u *User) Progress() progression.Progress {
	return progression.Progress{
		CurrentStreak:    u.CurrentStreak,
		LongestStreak:    u.LongestStreak,
		LastStudyDate:    u.LastStudyDate,
		ExperiencePoints: u.ExperiencePoints,
		Coins:            u.Coins,
	}
}

func userCacheKey(id int32) string {
	return "user:" + strconv.Itoa(int(id))
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	if !create.FrequencyMode.IsValid() {
		return nil, errors.Errorf("invalid frequency mode %d", create.FrequencyMode)
	}
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.cacheUser(ctx, user)
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	for _, user := range list {
		s.cacheUser(ctx, user)
	}
	return list, nil
}

// GetUser returns ErrNotFound when no user matches. Lookups by ID are served
// from the user cache, and concurrent misses for one ID share a single query.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil && find.Username == nil && s.userCache != nil {
		if user, ok := s.userCache.Get(ctx, userCacheKey(*find.ID)); ok {
			copied := user
			return &copied, nil
		}
		key := userCacheKey(*find.ID)
		v, err, _ := s.userGroup.Do(key, func() (any, error) {
			return s.getUser(ctx, find)
		})
		if err != nil {
			return nil, err
		}
		copied := *v.(*User)
		return &copied, nil
	}
	return s.getUser(ctx, find)
}

func (s *Store) getUser(ctx context.Context, find *FindUser) (*User, error) {
	limit := 1
	list, err := s.driver.ListUsers(ctx, &FindUser{ID: find.ID, Username: find.Username, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	s.cacheUser(ctx, list[0])
	return list[0], nil
}

// UpdateUser returns ErrVersionConflict when ExpectedVersion no longer matches,
// and ErrNotFound when the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	if v := update.FrequencyMode; v != nil && !v.IsValid() {
		return nil, errors.Errorf("invalid frequency mode %d", *v)
	}
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.evictUser(ctx, update.ID)
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, delete *DeleteUser) error {
	if err := s.driver.DeleteUser(ctx, delete); err != nil {
		return err
	}
	s.evictUser(ctx, delete.ID)
	return nil
}

// InvalidateUser drops the cached copy of a user.
func (s *Store) InvalidateUser(ctx context.Context, id int32) {
	s.evictUser(ctx, id)
}

func (s *Store) cacheUser(ctx context.Context, user *User) {
	// Rows read inside a transaction may never commit.
	if s.userCache == nil || s.tx != nil {
		return
	}
	s.userCache.Set(ctx, userCacheKey(user.ID), *user)
}

func (s *Store) evictUser(ctx context.Context, id int32) {
	if s.tx != nil {
		s.tx.evicted = append(s.tx.evicted, id)
		return
	}
	if s.userCache != nil {
		s.userCache.Delete(ctx, userCacheKey(id))
	}
}
