package memory

import (
	"context"
	"strings"
	"time"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
)

type users struct{ scope }

func (r users) Create(_ context.Context, user models.User) error {
	st, done := r.enter()
	defer done()

	for _, u := range st.users {
		if u.ID == user.ID || u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailTaken
		}
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	st.users[user.ID] = user
	return nil
}

func (r users) GetByID(_ context.Context, id string) (models.User, error) {
	st, done := r.enter()
	defer done()

	u, ok := st.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (r users) FindByUsername(_ context.Context, username string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r users) FindByEmail(_ context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return email != "" && strings.EqualFold(u.Email, email) })
}

func (r users) find(match func(models.User) bool) (models.User, error) {
	st, done := r.enter()
	defer done()

	for _, u := range st.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (r users) List(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	st, done := r.enter()
	defer done()

	var out []models.User
	for _, u := range st.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	sortByTimeDesc(out, func(u models.User) time.Time { return u.CreatedAt })
	return page(out, filter.Limit, filter.Offset), nil
}

func (r users) UpdateRole(_ context.Context, id string, role models.Role) error {
	st, done := r.enter()
	defer done()

	u, ok := st.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = r.now()
	st.users[id] = u
	return nil
}

func (r users) TouchLogin(_ context.Context, id string, at time.Time) error {
	st, done := r.enter()
	defer done()

	if u, ok := st.users[id]; ok {
		u.LastLoginAt = &at
		st.users[id] = u
	}
	return nil
}

func (r users) Delete(_ context.Context, id string) error {
	st, done := r.enter()
	defer done()

	if _, ok := st.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	st.deleteUser(id)
	return nil
}

func (r users) DeleteGuestsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	st, done := r.enter()
	defer done()

	var n int64
	for id, u := range st.users {
		if u.IsGuest && u.CreatedAt.Before(cutoff) {
			st.deleteUser(id)
			n++
		}
	}
	return n, nil
}
