package steppal

// GameState is everything the engine persists for one user.
type GameState struct {
	UserId        string                  `json:"user_id,omitempty"`
	Pet           *PetState               `json:"pet,omitempty"`
	Stats         *UserStats              `json:"stats,omitempty"`
	Coins         *CoinLedger             `json:"coins,omitempty"`
	Challenges    map[string]*Challenge   `json:"challenges,omitempty"`
	Achievements  map[string]*Achievement `json:"achievements,omitempty"`
	Initialized   bool                    `json:"initialized,omitempty"`
	CreateTimeSec int64                   `json:"create_time_sec,omitempty"`
	UpdateTimeSec int64                   `json:"update_time_sec,omitempty"`

	// Version is managed by the GameStateStore for optimistic writes.
	Version string `json:"-"`
}

type PetState struct {
	Name                  string  `json:"name,omitempty"`
	Type                  PetType `json:"type,omitempty"`
	Stage                 Stage   `json:"stage"`
	Level                 int32   `json:"level"`
	Experience            int64   `json:"experience"`
	ExperienceToNextLevel int64   `json:"experience_to_next_level"`
	LifetimeSteps         int64   `json:"lifetime_steps"`
	MiningEfficiency      float64 `json:"mining_efficiency"`
	MoodPoints            float64 `json:"mood_points"`
	Mood                  Mood    `json:"mood,omitempty"`
	Hunger                float64 `json:"hunger"`
	Energy                float64 `json:"energy"`
	Happiness             float64 `json:"happiness"`
	Health                float64 `json:"health"`
	Hatched               bool    `json:"hatched,omitempty"`
	EvolutionAnimation    bool    `json:"evolution_animation,omitempty"`
	LastFedTimeSec        int64   `json:"last_fed_time_sec,omitempty"`
	LastPlayedTimeSec     int64   `json:"last_played_time_sec,omitempty"`
	LastCareTimeSec       int64   `json:"last_care_time_sec,omitempty"`
	LastDecayTimeSec      int64   `json:"last_decay_time_sec,omitempty"`
}

type UserStats struct {
	StepsToday        int64              `json:"steps_today"`
	StepsThisWeek     int64              `json:"steps_this_week"`
	StepsThisMonth    int64              `json:"steps_this_month"`
	LastUpdateDate    string             `json:"last_update_date,omitempty"`
	Streak            int64              `json:"streak"`
	LongestStreak     int64              `json:"longest_streak"`
	DailyGoal         int64              `json:"daily_goal"`
	WeeklyGoal        int64              `json:"weekly_goal"`
	DailyHistory      []*DailyStepEntry  `json:"daily_history,omitempty"`
	WeeklyHistory     []*WeeklyStepEntry `json:"weekly_history,omitempty"`
	CareActionsToday  int64              `json:"care_actions_today,omitempty"`
	LastCareDate      string             `json:"last_care_date,omitempty"`
	// LastCreditedSteps is what the latest step submission credited after capping.
	LastCreditedSteps int64              `json:"last_credited_steps,omitempty"`
}

type DailyStepEntry struct {
	Date  string `json:"date"`
	Steps int64  `json:"steps"`
}

type WeeklyStepEntry struct {
	WeekStart string `json:"week_start"`
	Steps     int64  `json:"steps"`
}

type CoinLedger struct {
	Balance          int64          `json:"balance"`
	PendingReward    float64        `json:"pending_reward"`
	TotalEarned      int64          `json:"total_earned"`
	LastClaimTimeSec int64          `json:"last_claim_time_sec,omitempty"`
	MiningHistory    []*MiningEntry `json:"mining_history,omitempty"`
}

type MiningEntry struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type ChallengeType string

const (
	ChallengeTypeDaily   ChallengeType = "daily"
	ChallengeTypeWeekly  ChallengeType = "weekly"
	ChallengeTypeSpecial ChallengeType = "special"
)

type Challenge struct {
	Id            string        `json:"id"`
	DefinitionId  string        `json:"definition_id"`
	Type          ChallengeType `json:"type"`
	Title         string        `json:"title,omitempty"`
	Description   string        `json:"description,omitempty"`
	Metric        Metric        `json:"metric"`
	Target        int64         `json:"target"`
	Current       int64         `json:"current"`
	Reward        int64         `json:"reward"`
	CreateTimeSec int64         `json:"create_time_sec,omitempty"`
	ExpireTimeSec int64         `json:"expire_time_sec,omitempty"`
	Completed     bool          `json:"completed,omitempty"`
	Claimed       bool          `json:"claimed,omitempty"`
	ClaimTimeSec  int64         `json:"claim_time_sec,omitempty"`
}

type Achievement struct {
	DefinitionId  string `json:"definition_id"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	Progress      int64  `json:"progress"`
	Target        int64  `json:"target"`
	UnlockTimeSec int64  `json:"unlock_time_sec,omitempty"`
}

// Unlocked reports whether the achievement has been unlocked.
func (a *Achievement) Unlocked() bool {
	return a.UnlockTimeSec != 0
}

type EventType string

const (
	EventTypeLevelUp             EventType = "level_up"
	EventTypeEvolved             EventType = "evolved"
	EventTypeChallengeCompleted  EventType = "challenge_completed"
	EventTypeAchievementUnlocked EventType = "achievement_unlocked"
)

// Event is a notable transition produced by an engine operation. Which fields are set depends on Type:
// Level for level_up, Stage for evolved, Id for challenge_completed and achievement_unlocked.
type Event struct {
	Type    EventType `json:"type"`
	Level   int32     `json:"level,omitempty"`
	Stage   Stage     `json:"stage,omitempty"`
	Id      string    `json:"id,omitempty"`
	TimeSec int64     `json:"time_sec"`
}
