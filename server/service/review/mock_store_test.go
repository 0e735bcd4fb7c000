package review

import (
	"context"
	"sort"
	"sync"

	"github.com/hrygo/studydeck/plugin/srs"
	"github.com/hrygo/studydeck/store"
)

// mockStore is an in-memory Store. RunInTx restores the previous state when fn fails.
type mockStore struct {
	mu     sync.Mutex
	cards  map[int32]*store.Card
	users  map[int32]*store.User
	logs   []*store.ReviewLog
	nextID int32

	// cardConflicts makes that many UpdateCard calls fail with a version conflict.
	cardConflicts int
	updateCalls   int
	// userUpdateErr and logErr fail UpdateUser and CreateReviewLog.
	userUpdateErr error
	logErr        error
}

func newMockStore() *mockStore {
	return &mockStore{
		cards: map[int32]*store.Card{},
		users: map[int32]*store.User{},
	}
}

func (m *mockStore) addUser(user store.User) *store.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	user.RowVersion = 1
	m.users[user.ID] = &user
	copied := user
	return &copied
}

func (m *mockStore) addCard(card store.Card) *store.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	card.ID = m.nextID
	card.RowVersion = 1
	card.IsActive = true
	if card.EaseFactor == 0 {
		card.EaseFactor = srs.DefaultEaseFactor
	}
	if card.Status == "" {
		card.Status = srs.StatusNew
	}
	m.cards[card.ID] = &card
	copied := card
	return &copied
}

func (m *mockStore) card(id int32) store.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.cards[id]
}

func (m *mockStore) user(id int32) store.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *mockStore) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func matchCard(c *store.Card, find *store.FindCard) bool {
	switch {
	case find.ID != nil && c.ID != *find.ID:
		return false
	case find.UID != nil && c.UID != *find.UID:
		return false
	case find.CreatorID != nil && !c.IsOwnedBy(*find.CreatorID):
		return false
	case find.CourseID != nil && c.CourseID != *find.CourseID:
		return false
	case find.IsActive != nil && c.IsActive != *find.IsActive:
		return false
	case find.IsSuspended != nil && c.IsSuspended != *find.IsSuspended:
		return false
	case find.DueBefore != nil && c.NextReviewTs > *find.DueBefore:
		return false
	}
	return true
}

func (m *mockStore) ListCards(_ context.Context, find *store.FindCard) ([]*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*store.Card
	for _, c := range m.cards {
		if matchCard(c, find) {
			copied := *c
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].NextReviewTs != list[j].NextReviewTs {
			return list[i].NextReviewTs < list[j].NextReviewTs
		}
		return list[i].ID < list[j].ID
	})
	if find.Offset != nil {
		if *find.Offset >= len(list) {
			return nil, nil
		}
		list = list[*find.Offset:]
	}
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (m *mockStore) GetCard(ctx context.Context, find *store.FindCard) (*store.Card, error) {
	list, err := m.ListCards(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (m *mockStore) UpdateCard(_ context.Context, update *store.UpdateCard) (*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.cardConflicts > 0 {
		m.cardConflicts--
		return nil, store.ErrVersionConflict
	}
	c, ok := m.cards[update.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.ExpectedVersion != nil && *update.ExpectedVersion != c.RowVersion {
		return nil, store.ErrVersionConflict
	}
	if v := update.UpdatedTs; v != nil {
		c.UpdatedTs = *v
	}
	if v := update.EaseFactor; v != nil {
		c.EaseFactor = *v
	}
	if v := update.IntervalDays; v != nil {
		c.IntervalDays = *v
	}
	if v := update.Repetitions; v != nil {
		c.Repetitions = *v
	}
	if v := update.NextReviewTs; v != nil {
		c.NextReviewTs = *v
	}
	if v := update.LastReviewTs; v != nil {
		ts := *v
		c.LastReviewTs = &ts
	}
	if v := update.Status; v != nil {
		c.Status = *v
	}
	if v := update.IsActive; v != nil {
		c.IsActive = *v
	}
	if v := update.IsSuspended; v != nil {
		c.IsSuspended = *v
	}
	if v := update.TimesReviewed; v != nil {
		c.TimesReviewed = *v
	}
	if v := update.TimesCorrect; v != nil {
		c.TimesCorrect = *v
	}
	if v := update.TimesIncorrect; v != nil {
		c.TimesIncorrect = *v
	}
	if v := update.AverageResponseTime; v != nil {
		avg := *v
		c.AverageResponseTime = &avg
	}
	c.RowVersion++
	copied := *c
	return &copied, nil
}

func (m *mockStore) GetCardStats(_ context.Context, find *store.FindCardStats) (*store.CardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &store.CardStats{ByStatus: map[srs.Status]int{}}
	for _, c := range m.cards {
		if !c.IsActive || !c.IsOwnedBy(find.CreatorID) {
			continue
		}
		stats.Total++
		stats.ByStatus[c.Status]++
		stats.TimesReviewed += c.TimesReviewed
		stats.TimesCorrect += c.TimesCorrect
		if c.IsSuspended {
			stats.Suspended++
		} else if c.NextReviewTs <= find.DueBefore {
			stats.Due++
		}
	}
	return stats, nil
}

func (m *mockStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if find.ID == nil {
		return nil, store.ErrNotFound
	}
	u, ok := m.users[*find.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockStore) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userUpdateErr != nil {
		return nil, m.userUpdateErr
	}
	u, ok := m.users[update.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.ExpectedVersion != nil && *update.ExpectedVersion != u.RowVersion {
		return nil, store.ErrVersionConflict
	}
	if v := update.UpdatedTs; v != nil {
		u.UpdatedTs = *v
	}
	if v := update.FrequencyMode; v != nil {
		u.FrequencyMode = *v
	}
	if v := update.Timezone; v != nil {
		u.Timezone = *v
	}
	if v := update.CurrentStreak; v != nil {
		u.CurrentStreak = *v
	}
	if v := update.LongestStreak; v != nil {
		u.LongestStreak = *v
	}
	if v := update.LastStudyDate; v != nil {
		u.LastStudyDate = *v
	}
	if v := update.ExperiencePoints; v != nil {
		u.ExperiencePoints = *v
	}
	if v := update.Coins; v != nil {
		u.Coins = *v
	}
	u.RowVersion++
	copied := *u
	return &copied, nil
}

func (m *mockStore) CreateReviewLog(_ context.Context, create *store.ReviewLog) (*store.ReviewLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return nil, m.logErr
	}
	m.nextID++
	log := *create
	log.ID = m.nextID
	m.logs = append(m.logs, &log)
	copied := log
	return &copied, nil
}

func (m *mockStore) CountReviewLogs(_ context.Context, find *store.FindReviewLog) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, log := range m.logs {
		switch {
		case find.UserID != nil && log.UserID != *find.UserID:
		case find.CardID != nil && log.CardID != *find.CardID:
		case find.CreatedTsAfter != nil && log.CreatedTs < *find.CreatedTsAfter:
		default:
			count++
		}
	}
	return count, nil
}

func (m *mockStore) RunInTx(_ context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	cards := make(map[int32]store.Card, len(m.cards))
	for id, c := range m.cards {
		cards[id] = *c
	}
	users := make(map[int32]store.User, len(m.users))
	for id, u := range m.users {
		users[id] = *u
	}
	logs := len(m.logs)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		for id, c := range cards {
			restored := c
			m.cards[id] = &restored
		}
		for id, u := range users {
			restored := u
			m.users[id] = &restored
		}
		m.logs = m.logs[:logs]
		return err
	}
	return nil
}
