package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/model"
)

func TestUserRepositoryGetOrCreate(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user, err := repo.GetOrCreate(100, "anna_k", "Анна", "Ковалёва")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.TelegramID)
	assert.False(t, user.IsAgent)
	assert.True(t, user.IsAvailable)
	assert.Empty(t, user.Languages)

	// Повторный контакт возвращает ту же запись, а не создаёт новую.
	again, err := repo.GetOrCreate(100, "anna_k", "Анна", "Ковалёва")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = repo.GetByID(user.ID + 100)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = repo.GetByTelegramID(999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserRepositoryAgentFlags(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user, err := repo.GetOrCreate(200, "oleg", "Олег", "")
	require.NoError(t, err)

	require.NoError(t, repo.SetAgent(user.ID))
	require.NoError(t, repo.SetLanguages(user.ID, "en,es"))
	require.NoError(t, repo.SetAvailability(user.ID, false))

	got, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAgent)
	assert.Equal(t, "en,es", got.Languages)
	assert.False(t, got.IsAvailable)
	assert.Equal(t, []string{"en", "es"}, got.LanguageList())
}

func TestUserRepositoryFindEligibleAgents(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	makeAgent := func(tgID int64, name, langs string, available bool) *model.User {
		u, err := repo.GetOrCreate(tgID, name, name, "")
		require.NoError(t, err)
		require.NoError(t, repo.SetAgent(u.ID))
		require.NoError(t, repo.SetLanguages(u.ID, langs))
		require.NoError(t, repo.SetAvailability(u.ID, available))
		return u
	}

	a1 := makeAgent(1, "a1", "es", true)
	makeAgent(2, "a2", "en", true)       // другой язык
	makeAgent(3, "a3", "es", false)      // недоступен
	makeAgent(4, "a4", "esp,eng", true)  // "es" — не подстрока, а элемент списка
	a5 := makeAgent(5, "a5", "en,es", true)
	_, err := repo.GetOrCreate(6, "client", "Клиент", "") // не оператор
	require.NoError(t, err)

	agents, err := repo.FindEligibleAgents("es")
	require.NoError(t, err)
	ids := make([]int, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []int{a1.ID, a5.ID}, ids)

	// Смена доступности влияет на будущие выборки.
	require.NoError(t, repo.SetAvailability(a1.ID, false))
	agents, err = repo.FindEligibleAgents("es")
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, a5.ID, agents[0].ID)

	none, err := repo.FindEligibleAgents("de")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserRepositoryListAgents(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	u1, err := repo.GetOrCreate(1, "a", "А", "")
	require.NoError(t, err)
	require.NoError(t, repo.SetAgent(u1.ID))
	_, err = repo.GetOrCreate(2, "b", "Б", "")
	require.NoError(t, err)

	agents, err := repo.ListAgents()
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, u1.ID, agents[0].ID)
}
