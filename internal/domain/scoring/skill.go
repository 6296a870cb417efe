package scoring

import (
	"time"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// TrendBand is the tolerance, in level points, inside which a skill is
// considered stable.
const TrendBand = 5.0

// Trend classifies the movement of a skill level.
type Trend string

// Trend values.
const (
	TrendNew       Trend = "new"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

const (
	hoursPerDay = 24
	daysPerWeek = 7.0
)

// NewSkillProgress creates the first proficiency point for a (user, skill)
// pair from its first piece of evidence.
func NewSkillProgress(userID, skill string, level float64, source string, observedAt time.Time) *model.SkillProgress {
	return &model.SkillProgress{
		UserID:         userID,
		Skill:          model.NormalizeSkill(skill),
		CurrentLevel:   level,
		Evidence:       []model.Evidence{{Source: source, Level: level, Timestamp: observedAt}},
		CreatedAt:      observedAt,
		LastAssessedAt: observedAt,
	}
}

// UpdateSkillLevel replaces the current level with newLevel, keeping the
// prior level for trend detection, and records the evidence. The weekly
// improvement rate is recomputed from whole days elapsed since creation and
// left unchanged when less than one day has passed.
func UpdateSkillLevel(p *model.SkillProgress, newLevel float64, source string, observedAt time.Time) {
	prev := p.CurrentLevel
	p.PreviousLevel = &prev
	p.CurrentLevel = newLevel
	p.LastAssessedAt = observedAt
	p.Evidence = append(p.Evidence, model.Evidence{Source: source, Level: newLevel, Timestamp: observedAt})

	if p.CreatedAt.IsZero() {
		return
	}
	weeks := weeksElapsed(p.CreatedAt, observedAt)
	if weeks > 0 {
		p.ImprovementRatePerWeek = (newLevel - prev) / weeks
	}
}

func weeksElapsed(from, to time.Time) float64 {
	days := int64(to.Sub(from) / (hoursPerDay * time.Hour))
	return float64(days) / daysPerWeek
}

// TrendDirection compares a level with the previous one. A missing previous
// level is new.
func TrendDirection(current float64, previous *float64) Trend {
	switch {
	case previous == nil:
		return TrendNew
	case current > *previous+TrendBand:
		return TrendImproving
	case current < *previous-TrendBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// ProficiencyLabel names a skill level for display.
func ProficiencyLabel(level float64) string {
	switch {
	case level >= 90:
		return "Expert"
	case level >= 80:
		return "Advanced"
	case level >= 70:
		return "Proficient"
	case level >= 60:
		return "Intermediate"
	case level >= 40:
		return "Developing"
	default:
		return "Beginner"
	}
}

// AddPracticeTime logs a practice activity against a skill.
func AddPracticeTime(p *model.SkillProgress, minutes int, at time.Time) {
	p.TotalPracticeMinutes += int64(minutes)
	p.ActivitiesCompleted++
	p.LastActivityAt = &at
}
