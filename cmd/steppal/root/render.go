package root

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"steppal/cmd/steppal/ui"
	"steppal/steppal"
)

func renderState(w io.Writer, state *steppal.GameState, now time.Time) {
	pet, stats, coins := state.Pet, state.Stats, state.Coins

	fmt.Fprintln(w, ui.Heading(ui.IconPaw, fmt.Sprintf("%s the %s %s", pet.Name, pet.Stage, pet.Type)))
	if pet.EvolutionAnimation {
		fmt.Fprintln(w, ui.Gold.Render(ui.IconSparkle+" evolved to "+pet.Stage.String()+"!"))
	}
	fmt.Fprintln(w, ui.LabelValue("Level", fmt.Sprintf("%d (%s / %s XP)", pet.Level, humanize.Comma(pet.Experience), humanize.Comma(pet.ExperienceToNextLevel))))
	fmt.Fprintln(w, ui.LabelValue("Lifetime steps", humanize.Comma(pet.LifetimeSteps)))
	fmt.Fprintln(w, ui.LabelValue("Mood", fmt.Sprintf("%s (%.0f)", pet.Mood, pet.MoodPoints)))
	fmt.Fprintln(w, ui.LabelValue("Hunger   ", ui.Bar(pet.Hunger, 20)))
	fmt.Fprintln(w, ui.LabelValue("Energy   ", ui.Bar(pet.Energy, 20)))
	fmt.Fprintln(w, ui.LabelValue("Happiness", ui.Bar(pet.Happiness, 20)))
	fmt.Fprintln(w, ui.LabelValue("Health   ", ui.Bar(pet.Health, 20)))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, ui.H2.Render(ui.IconSteps+" Steps"))
	fmt.Fprintf(w, "- today %s of %s goal, week %s, month %s\n",
		humanize.Comma(stats.StepsToday), humanize.Comma(stats.DailyGoal), humanize.Comma(stats.StepsThisWeek), humanize.Comma(stats.StepsThisMonth))
	fmt.Fprintf(w, "- streak %d days %s\n", stats.Streak, ui.Muted.Render(fmt.Sprintf("(best %d)", stats.LongestStreak)))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, ui.H2.Render(ui.IconCoin+" Coins"))
	fmt.Fprintf(w, "- balance %s, pending %s, earned %s, mining x%.1f\n",
		humanize.Comma(coins.Balance), humanize.CommafWithDigits(coins.PendingReward, 2), humanize.Comma(coins.TotalEarned), pet.MiningEfficiency)
	if coins.LastClaimTimeSec > 0 {
		fmt.Fprintln(w, ui.Muted.Render("  last claimed "+humanize.RelTime(time.Unix(coins.LastClaimTimeSec, 0), now, "ago", "from now")))
	}
	fmt.Fprintln(w, "")

	renderChallenges(w, state, now)
	renderAchievements(w, state, now)
}

func renderChallenges(w io.Writer, state *steppal.GameState, now time.Time) {
	if len(state.Challenges) == 0 {
		return
	}
	challenges := make([]*steppal.Challenge, 0, len(state.Challenges))
	for _, c := range state.Challenges {
		challenges = append(challenges, c)
	}
	sort.Slice(challenges, func(i, j int) bool {
		if challenges[i].Type != challenges[j].Type {
			return challenges[i].Type < challenges[j].Type
		}
		return challenges[i].DefinitionId < challenges[j].DefinitionId
	})

	fmt.Fprintln(w, ui.H2.Render(ui.IconTarget+" Challenges"))
	for _, c := range challenges {
		status := ui.Muted.Render(fmt.Sprintf("%s/%s", humanize.Comma(c.Current), humanize.Comma(c.Target)))
		switch {
		case c.Claimed:
			status = ui.Muted.Render("claimed")
		case c.Completed:
			status = ui.Good.Render("ready to claim")
		}
		fmt.Fprintf(w, "- [%s] %s %s, %s coins, ends %s\n", c.Type, c.Title, status, humanize.Comma(c.Reward),
			humanize.RelTime(time.Unix(c.ExpireTimeSec, 0), now, "ago", "from now"))
		fmt.Fprintln(w, ui.Muted.Render("  id "+c.Id))
	}
	fmt.Fprintln(w, "")
}

func renderAchievements(w io.Writer, state *steppal.GameState, now time.Time) {
	ids := make([]string, 0, len(state.Achievements))
	unlocked := 0
	for id, a := range state.Achievements {
		ids = append(ids, id)
		if a.Unlocked() {
			unlocked++
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)

	fmt.Fprintln(w, ui.H2.Render(fmt.Sprintf("%s Achievements (%d/%d)", ui.IconTrophy, unlocked, len(ids))))
	for _, id := range ids {
		a := state.Achievements[id]
		if a.Unlocked() {
			fmt.Fprintf(w, "- %s %s\n", ui.Gold.Render(a.Name), ui.Muted.Render("unlocked "+humanize.RelTime(time.Unix(a.UnlockTimeSec, 0), now, "ago", "from now")))
			continue
		}
		pct := math.Min(100, float64(a.Progress)/float64(a.Target)*100)
		fmt.Fprintf(w, "- %s %s\n", a.Name, ui.Muted.Render(fmt.Sprintf("%s/%s (%.0f%%)", humanize.Comma(a.Progress), humanize.Comma(a.Target), pct)))
	}
}

func renderEvents(w io.Writer, state *steppal.GameState, events []*steppal.Event) {
	for _, event := range events {
		switch event.Type {
		case steppal.EventTypeLevelUp:
			fmt.Fprintln(w, ui.Gold.Render(fmt.Sprintf("%s LEVEL UP! %s level reached", ui.IconSparkle, humanize.Ordinal(int(event.Level)))))
		case steppal.EventTypeEvolved:
			fmt.Fprintln(w, ui.Gold.Render(fmt.Sprintf("%s Evolved into a %s!", ui.IconSparkle, event.Stage)))
		case steppal.EventTypeChallengeCompleted:
			title := event.Id
			if c, ok := state.Challenges[event.Id]; ok {
				title = c.Title
			}
			fmt.Fprintln(w, ui.Good.Render(fmt.Sprintf("%s Challenge completed: %s", ui.IconTarget, title)))
		case steppal.EventTypeAchievementUnlocked:
			name := event.Id
			if a, ok := state.Achievements[event.Id]; ok {
				name = a.Name
			}
			fmt.Fprintln(w, ui.Gold.Render(fmt.Sprintf("%s Achievement unlocked: %s", ui.IconTrophy, name)))
		}
	}
}
