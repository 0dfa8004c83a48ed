package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
)

// eventCategory is the coarse bucket a noisy type label resolves to.
type eventCategory string

const (
	categoryWorkshop        eventCategory = "workshop"
	categoryHackathon       eventCategory = "hackathon"
	categoryIndustrialVisit eventCategory = "industrial_visit"
	categoryFieldTrip       eventCategory = "field_trip"
	categoryCultural        eventCategory = "cultural"
	categoryConference      eventCategory = "conference"
	categoryUnknown         eventCategory = "unknown"
)

// categoryKeywords maps categories to the label/description keywords that
// select them. Order matters: earlier categories win when several match.
var categoryKeywords = []struct {
	category eventCategory
	keywords []string
}{
	{categoryHackathon, []string{"hackathon", "hack-a-thon", "coding marathon", "codeathon"}},
	{categoryIndustrialVisit, []string{"industrial visit", "industry visit", "industrial training", "plant visit"}},
	{categoryFieldTrip, []string{"field trip", "fieldtrip", "excursion"}},
	{categoryWorkshop, []string{"workshop", "seminar", "training", "bootcamp"}},
	{categoryConference, []string{"conference", "summit", "symposium"}},
	{categoryCultural, []string{"cultural", "competition", "contest", "fest"}},
}

// baseScores contributes category-driven weight to candidate strategies.
var baseScores = map[eventCategory]map[models.AttendanceStrategy]int{
	categoryWorkshop:        {models.StrategySingleMark: 20, models.StrategySessionBased: 10, models.StrategyDayBased: 10},
	categoryHackathon:       {models.StrategySessionBased: 60},
	categoryIndustrialVisit: {models.StrategyDayBased: 25, models.StrategySingleMark: 10},
	categoryFieldTrip:       {models.StrategySingleMark: 40},
	categoryConference:      {models.StrategySessionBased: 15, models.StrategyDayBased: 15},
	categoryCultural:        {models.StrategySingleMark: 20},
}

const (
	durationBoost        = 30
	competitionBoost     = 70
	singleDayMaxDuration = 8 * time.Hour
	sessionLength        = 6 * time.Hour
	periodicInterval     = 4 * time.Hour
)

// strategyRank breaks score ties. Higher rank wins.
var strategyRank = map[models.AttendanceStrategy]int{
	models.StrategySessionBased:   5,
	models.StrategyDayBased:       4,
	models.StrategyMilestoneBased: 3,
	models.StrategySingleMark:     2,
	models.StrategyPeriodic:       1,
}

// StrategyService classifies events into attendance strategies. Classification
// is pure and deterministic; any unparseable input degrades to SINGLE_MARK so
// mis-classification can never block registration.
type StrategyService struct {
	logger *zap.Logger
}

// NewStrategyService constructs StrategyService.
func NewStrategyService(logger *zap.Logger) *StrategyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyService{logger: logger}
}

// Classify computes the attendance strategy and the derived check-in timeline
// for an event. It never fails.
func (s *StrategyService) Classify(event *models.Event) (models.AttendanceStrategy, models.Timeline) {
	if event == nil {
		return models.StrategySingleMark, models.Timeline{}
	}

	start, end, ok := eventSpan(event)
	if !ok {
		s.logger.Debug("classifier fallback: unusable timestamps", zap.String("event", event.ID))
		return models.StrategySingleMark, models.Timeline{}
	}
	duration := end.Sub(start)

	category := detectCategory(event.EventType, event.Description)
	strategy := scoreStrategy(category, start, end, duration, hasCompetitionKeyword(event.EventType, event.Description))
	timeline := buildTimeline(strategy, start, end, duration)

	s.logger.Debug("event classified",
		zap.String("event", event.ID),
		zap.String("category", string(category)),
		zap.String("strategy", string(strategy)),
		zap.Int("windows", len(timeline)),
	)
	return strategy, timeline
}

// Timeline builds the check-in timeline an event would get under a forced
// strategy, bypassing classification. This is how an organizer override
// reaches strategies the classifier never selects, such as PERIODIC.
func (s *StrategyService) Timeline(strategy models.AttendanceStrategy, event *models.Event) models.Timeline {
	if event == nil {
		return models.Timeline{}
	}
	start, end, ok := eventSpan(event)
	if !ok {
		return models.Timeline{}
	}
	return buildTimeline(strategy, start, end, end.Sub(start))
}

func eventSpan(event *models.Event) (time.Time, time.Time, bool) {
	if event.StartAt == nil || event.EndAt == nil {
		return time.Time{}, time.Time{}, false
	}
	start := *event.StartAt
	end := *event.EndAt
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func detectCategory(typeLabel, description string) eventCategory {
	haystack := normalize(typeLabel + " " + description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.category
			}
		}
	}
	return categoryUnknown
}

func hasCompetitionKeyword(typeLabel, description string) bool {
	haystack := normalize(typeLabel + " " + description)
	return strings.Contains(haystack, "competition") || strings.Contains(haystack, "contest")
}

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func scoreStrategy(category eventCategory, start, end time.Time, duration time.Duration, competition bool) models.AttendanceStrategy {
	scores := map[models.AttendanceStrategy]int{}

	if category == categoryUnknown {
		// Unrecognized categories ignore keyword scoring and decide purely
		// on duration.
		if duration <= singleDayMaxDuration {
			return models.StrategySingleMark
		}
		return models.StrategySessionBased
	}

	for strategy, score := range baseScores[category] {
		scores[strategy] += score
	}

	// Hackathons keep checkpoint-style sessions regardless of span: a 48h
	// hackathon has checkpoints, not daily resets.
	if category != categoryHackathon {
		switch {
		case duration <= singleDayMaxDuration:
			scores[models.StrategySingleMark] += durationBoost
		case sameCalendarDay(start, end):
			scores[models.StrategySessionBased] += durationBoost
		default:
			scores[models.StrategyDayBased] += durationBoost
		}

		if competition {
			scores[models.StrategyMilestoneBased] += competitionBoost
		}
	}

	best := models.StrategySingleMark
	bestScore := -1
	for strategy, score := range scores {
		if score > bestScore || (score == bestScore && strategyRank[strategy] > strategyRank[best]) {
			best = strategy
			bestScore = score
		}
	}
	return best
}

func sameCalendarDay(start, end time.Time) bool {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	return sy == ey && sm == em && sd == ed
}

func buildTimeline(strategy models.AttendanceStrategy, start, end time.Time, duration time.Duration) models.Timeline {
	switch strategy {
	case models.StrategySingleMark:
		return models.Timeline{{Name: "check-in", OpensAt: start, ClosesAt: end}}
	case models.StrategySessionBased:
		return sessionWindows(start, end, duration)
	case models.StrategyDayBased:
		return dayWindows(start, end)
	case models.StrategyMilestoneBased:
		return milestoneWindows(start, end, duration)
	case models.StrategyPeriodic:
		return intervalWindows(start, end, periodicInterval)
	default:
		return models.Timeline{}
	}
}

func sessionWindows(start, end time.Time, duration time.Duration) models.Timeline {
	count := int(duration / sessionLength)
	if duration%sessionLength != 0 {
		count++
	}
	if count < 2 {
		count = 2
	}
	step := duration / time.Duration(count)
	windows := make(models.Timeline, 0, count)
	for i := 0; i < count; i++ {
		opens := start.Add(step * time.Duration(i))
		closes := opens.Add(step)
		if i == count-1 {
			closes = end
		}
		windows = append(windows, models.CheckinWindow{
			Name:     fmt.Sprintf("session-%d", i+1),
			OpensAt:  opens,
			ClosesAt: closes,
		})
	}
	return windows
}

func dayWindows(start, end time.Time) models.Timeline {
	windows := models.Timeline{}
	day := 1
	cursor := start
	for cursor.Before(end) {
		midnight := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location()).AddDate(0, 0, 1)
		closes := midnight
		if closes.After(end) {
			closes = end
		}
		windows = append(windows, models.CheckinWindow{
			Name:     fmt.Sprintf("day-%d", day),
			OpensAt:  cursor,
			ClosesAt: closes,
		})
		cursor = midnight
		day++
	}
	return windows
}

func milestoneWindows(start, end time.Time, duration time.Duration) models.Timeline {
	third := duration / 3
	return models.Timeline{
		{Name: "registration", OpensAt: start, ClosesAt: start.Add(third)},
		{Name: "performance", OpensAt: start.Add(third), ClosesAt: start.Add(2 * third)},
		{Name: "award", OpensAt: start.Add(2 * third), ClosesAt: end},
	}
}

func intervalWindows(start, end time.Time, interval time.Duration) models.Timeline {
	windows := models.Timeline{}
	i := 1
	cursor := start
	for cursor.Before(end) {
		closes := cursor.Add(interval)
		if closes.After(end) {
			closes = end
		}
		windows = append(windows, models.CheckinWindow{
			Name:     fmt.Sprintf("interval-%d", i),
			OpensAt:  cursor,
			ClosesAt: closes,
		})
		cursor = closes
		i++
	}
	return windows
}
