package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/analysis"
	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/internal/types/entry"
	"neuroTrackAPI/internal/types/goal"
	"neuroTrackAPI/internal/types/profile"
	"neuroTrackAPI/internal/types/user"
)

// setupTestDB connects to TEST_DATABASE_URL and skips the test when it is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, EnsureSchema(ctx, db))
	return db
}

type testStack struct {
	users     *UserService
	profiles  *ProfileService
	entries   *EntryService
	goals     *GoalService
	analyses  *AnalysisService
	settings  *SettingService
	data      *DataService
	friends   *FriendService
	generator *fakeGenerator
	reports   *ReportService
}

func newTestStack(t *testing.T, db *pgxpool.Pool) *testStack {
	gen := &fakeGenerator{reply: "## Report"}
	ai := newTestAI(t, gen)

	s := &testStack{
		users:     NewUserService(db),
		profiles:  NewProfileService(db),
		entries:   NewEntryService(db),
		analyses:  NewAnalysisService(db),
		settings:  NewSettingService(db),
		generator: gen,
	}
	s.goals = NewGoalService(db, ai)
	s.data = NewDataService(db, s.profiles, s.entries, s.goals, s.analyses)
	s.friends = NewFriendService(db, s.entries, s.goals)
	s.reports = NewReportService(s.data, s.settings, s.analyses, ai, nil)
	return s
}

// newClerkUser creates a throwaway user and removes it when the test ends.
func newClerkUser(t *testing.T, s *testStack) string {
	t.Helper()
	clerkID := "user_" + uuid.NewString()
	_, err := s.users.CreateUser(context.Background(), &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     clerkID + "@example.com",
		Username:  clerkID,
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.users.DeleteUserByClerkID(context.Background(), clerkID)
	})
	return clerkID
}

func TestResolveUserID_ProvisionsOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	clerkID := "user_" + uuid.NewString()
	t.Cleanup(func() { _, _ = db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID) })

	first, err := resolveUserID(ctx, db, clerkID)
	require.NoError(t, err)
	second, err := resolveUserID(ctx, db, clerkID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = resolveUserID(ctx, db, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEntryService_TodoLifecycle(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	ctx := context.Background()
	date := "2024-03-10"

	empty, err := s.entries.GetEntry(ctx, clerkID, date)
	require.NoError(t, err)
	assert.Empty(t, empty.Todos)

	e, err := s.entries.AddTodo(ctx, clerkID, date, &entry.AddTodoRequest{Text: "Read"})
	require.NoError(t, err)
	e, err = s.entries.AddTodo(ctx, clerkID, date, &entry.AddTodoRequest{Text: "Run"})
	require.NoError(t, err)
	require.Len(t, e.Todos, 2)
	assert.Equal(t, 2, e.TotalCount)

	e, err = s.entries.ToggleTodo(ctx, clerkID, date, e.Todos[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CompletedCount)

	_, err = s.entries.ToggleTodo(ctx, clerkID, date, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mood := 8
	e, err = s.entries.UpdateJournal(ctx, clerkID, date, &entry.UpdateJournalRequest{Journal: "solid day", MoodScore: &mood})
	require.NoError(t, err)
	assert.Equal(t, 8, e.MoodScore)

	e, err = s.entries.ClearMissedDay(ctx, clerkID, date)
	require.NoError(t, err)
	require.Len(t, e.Todos, 1)
	assert.Equal(t, "Read", e.Todos[0].Text)
	assert.True(t, e.IsComplete())

	require.NoError(t, s.entries.DeleteEntry(ctx, clerkID, date))
	assert.ErrorIs(t, s.entries.DeleteEntry(ctx, clerkID, date), ErrNotFound)
}

func TestEntryService_RepeatSeedsToday(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	ctx := context.Background()

	today := tracker.Today()
	yesterday, err := tracker.ShiftDate(today, -1)
	require.NoError(t, err)

	_, err = s.entries.AddTodo(ctx, clerkID, yesterday, &entry.AddTodoRequest{Text: "Meditate"})
	require.NoError(t, err)
	_, err = s.entries.SetRepeatDaily(ctx, clerkID, yesterday, true)
	require.NoError(t, err)

	seeded, err := s.entries.GetEntry(ctx, clerkID, today)
	require.NoError(t, err)
	require.Len(t, seeded.Todos, 1)
	assert.Equal(t, "Meditate", seeded.Todos[0].Text)
	assert.False(t, seeded.Todos[0].Completed)

	// The seeded ids are stored, so toggling them works.
	toggled, err := s.entries.ToggleTodo(ctx, clerkID, today, seeded.Todos[0].ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsComplete())
}

func TestGoalService_Milestones(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	ctx := context.Background()

	g, err := s.goals.CreateGoal(ctx, clerkID, &goal.CreateGoalRequest{Title: "Learn Go", Type: goal.ShortTerm, Deadline: "2024-12-31"})
	require.NoError(t, err)
	assert.Zero(t, g.Progress)

	g, err = s.goals.AddMilestone(ctx, clerkID, g.ID, &goal.AddMilestoneRequest{Text: "Tour of Go"})
	require.NoError(t, err)
	g, err = s.goals.AddMilestone(ctx, clerkID, g.ID, &goal.AddMilestoneRequest{Text: "Build an API"})
	require.NoError(t, err)

	g, err = s.goals.ToggleMilestone(ctx, clerkID, g.ID, g.Tasks[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, 50, g.Progress, 0.001)

	g, err = s.goals.SetCompleted(ctx, clerkID, g.ID, true)
	require.NoError(t, err)
	assert.Equal(t, float64(100), g.Progress)

	g, err = s.goals.SetCompleted(ctx, clerkID, g.ID, false)
	require.NoError(t, err)
	assert.InDelta(t, 50, g.Progress, 0.001)

	_, err = s.goals.CreateGoal(ctx, clerkID, &goal.CreateGoalRequest{Title: "No deadline"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, s.goals.DeleteGoal(ctx, clerkID, g.ID))
	assert.ErrorIs(t, s.goals.DeleteGoal(ctx, clerkID, g.ID), ErrNotFound)
}

func TestGoalService_PlanGoalDefaults(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	s.generator.reply = `["Step 1","Step 2","Step 3","Step 4","Step 5"]`

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	g, err := s.goals.PlanGoal(context.Background(), clerkID, &goal.CreateGoalRequest{Title: "Ship the app"}, now)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-14", g.Deadline)
	assert.Equal(t, goal.ShortTerm, g.Type)
	assert.Len(t, g.Tasks, 5)
}

func TestDataService_SaveLoadRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	ctx := context.Background()

	data := appdata.Default()
	data.Profile = profile.UserProfile{Name: "Ana", Age: "31", Height: "170", Weight: "60"}
	data.History["2024-06-01"] = &entry.DailyEntry{Todos: []entry.Todo{{Text: "Read", Completed: true}}}
	data.History["2024-06-02"] = &entry.DailyEntry{Todos: []entry.Todo{{Text: "Run"}}}
	data.Goals = []*goal.Goal{{Title: "Marathon", Type: goal.LongTerm, Deadline: "2024-10-01"}}

	_, err := s.data.Save(ctx, clerkID, data)
	require.NoError(t, err)

	loaded, err := s.data.Load(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", loaded.Profile.Name)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, 1, loaded.History["2024-06-01"].CompletedCount)
	require.Len(t, loaded.Goals, 1)
	assert.NotEmpty(t, loaded.Goals[0].ID)

	// Dropping a day from the document removes it from storage.
	delete(loaded.History, "2024-06-02")
	_, err = s.data.Save(ctx, clerkID, loaded)
	require.NoError(t, err)

	reloaded, err := s.data.Load(ctx, clerkID)
	require.NoError(t, err)
	assert.Len(t, reloaded.History, 1)

	require.NoError(t, s.data.Reset(ctx, clerkID))
	wiped, err := s.data.Load(ctx, clerkID)
	require.NoError(t, err)
	assert.Empty(t, wiped.History)
	assert.Empty(t, wiped.Goals)
	assert.False(t, wiped.Profile.IsComplete())
}

func TestDataService_VanishingAnalyses(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.analyses.AddAnalysis(ctx, clerkID, &analysis.AIAnalysis{Date: "2024-06-02", Type: analysis.Weekly, Content: "old"}))
	require.NoError(t, s.analyses.AddAnalysis(ctx, clerkID, &analysis.AIAnalysis{Date: "2024-06-03", Type: analysis.Weekly, Content: "new"}))
	// Same (day, type) again is ignored.
	require.NoError(t, s.analyses.AddAnalysis(ctx, clerkID, &analysis.AIAnalysis{Date: "2024-06-03", Type: analysis.Weekly, Content: "dup"}))

	data, synced := s.data.LoadForClient(ctx, clerkID, now)
	assert.True(t, synced)
	require.Len(t, data.Analytics, 1)
	assert.Equal(t, "new", data.Analytics[0].Content)

	stored, err := s.analyses.ListAnalyses(ctx, clerkID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReportService_OncePerDay(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)
	ctx := context.Background()
	sunday := time.Date(2024, 6, 9, 18, 0, 0, 0, time.UTC)

	first, err := s.reports.CheckDueReport(ctx, clerkID, sunday)
	require.NoError(t, err)
	assert.True(t, first.Generated)
	assert.True(t, first.Celebrate)
	assert.Equal(t, analysis.Weekly, first.Type)

	second, err := s.reports.CheckDueReport(ctx, clerkID, sunday)
	require.NoError(t, err)
	assert.True(t, second.AlreadySeen)
	assert.False(t, second.Generated)

	assert.Len(t, s.generator.prompts, 1)

	value, found, err := s.settings.GetSetting(ctx, clerkID, analysis.SeenPopupKey("2024-06-09"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "true", value)
}

func TestFriendService_Summary(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	ctx := context.Background()
	me := newClerkUser(t, s)
	friend := newClerkUser(t, s)

	friendUser, err := s.users.GetUserByClerkID(ctx, friend)
	require.NoError(t, err)

	now := time.Now()
	_, err = s.entries.AddTodo(ctx, friend, tracker.DateKey(now), &entry.AddTodoRequest{Text: "Stretch"})
	require.NoError(t, err)

	require.NoError(t, s.friends.AddFriend(ctx, me, friendUser.ID))
	assert.ErrorIs(t, s.friends.AddFriend(ctx, me, friendUser.ID), ErrFriendshipExists)

	summaries, err := s.friends.GetFriends(ctx, me, now)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Test User", summaries[0].Name)
	assert.Equal(t, 1, summaries[0].TodayTaskCount)

	require.NoError(t, s.friends.RemoveFriend(ctx, me, friendUser.ID))
	assert.ErrorIs(t, s.friends.RemoveFriend(ctx, me, friendUser.ID), ErrNotFound)
}

func TestCheckDueReport_IgnoresCancelledCaller(t *testing.T) {
	db := setupTestDB(t)
	s := newTestStack(t, db)
	clerkID := newClerkUser(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.reports.CheckDueReport(ctx, clerkID, time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, result.Generated)
	assert.Equal(t, analysis.Monthly, result.Type)
}
