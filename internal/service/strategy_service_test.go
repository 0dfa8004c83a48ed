package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/events-api/internal/models"
)

func eventWithSpan(eventType, description string, start time.Time, duration time.Duration) *models.Event {
	end := start.Add(duration)
	return &models.Event{
		ID:          "evt-1",
		Name:        "Test Event",
		EventType:   eventType,
		Description: description,
		StartAt:     &start,
		EndAt:       &end,
	}
}

func TestClassifyStrategies(t *testing.T) {
	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		eventType   string
		description string
		start       time.Time
		duration    time.Duration
		want        models.AttendanceStrategy
	}{
		{
			name:      "short workshop",
			eventType: "Workshop",
			start:     base,
			duration:  2 * time.Hour,
			want:      models.StrategySingleMark,
		},
		{
			name:      "long same-day workshop",
			eventType: "Full-Day Workshop",
			start:     base.Add(-time.Hour),
			duration:  10 * time.Hour,
			want:      models.StrategySessionBased,
		},
		{
			name:      "weekend hackathon",
			eventType: "Hackathon",
			start:     base,
			duration:  48 * time.Hour,
			want:      models.StrategySessionBased,
		},
		{
			name:        "hackathon ignores competition wording",
			eventType:   "Hackathon",
			description: "48 hour coding competition with prizes",
			start:       base,
			duration:    48 * time.Hour,
			want:        models.StrategySessionBased,
		},
		{
			name:        "multi-day dance competition",
			eventType:   "Cultural Fest",
			description: "Inter-college dance competition across three days",
			start:       base,
			duration:    72 * time.Hour,
			want:        models.StrategyMilestoneBased,
		},
		{
			name:      "two day industrial visit",
			eventType: "Industrial Visit",
			start:     base,
			duration:  30 * time.Hour,
			want:      models.StrategyDayBased,
		},
		{
			name:      "field trip",
			eventType: "Field Trip",
			start:     base,
			duration:  6 * time.Hour,
			want:      models.StrategySingleMark,
		},
		{
			name:      "multi-day conference",
			eventType: "Tech Conference",
			start:     base,
			duration:  50 * time.Hour,
			want:      models.StrategyDayBased,
		},
		{
			name:        "conference hosting a contest",
			eventType:   "Conference",
			description: "Includes a paper presentation contest",
			start:       base,
			duration:    50 * time.Hour,
			want:        models.StrategyMilestoneBased,
		},
		{
			name:      "unknown short label",
			eventType: "Guest Lecture Series",
			start:     base,
			duration:  4 * time.Hour,
			want:      models.StrategySingleMark,
		},
		{
			name:      "unknown long label",
			eventType: "Orientation Programme",
			start:     base,
			duration:  30 * time.Hour,
			want:      models.StrategySessionBased,
		},
	}

	svc := NewStrategyService(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event := eventWithSpan(tc.eventType, tc.description, tc.start, tc.duration)
			got, _ := svc.Classify(event)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	svc := NewStrategyService(nil)
	event := eventWithSpan("Workshop", "hands-on training", time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC), 3*time.Hour)

	first, firstTimeline := svc.Classify(event)
	for i := 0; i < 10; i++ {
		got, timeline := svc.Classify(event)
		assert.Equal(t, first, got)
		assert.Equal(t, firstTimeline, timeline)
	}
}

func TestClassifyDegradesOnBadTimestamps(t *testing.T) {
	svc := NewStrategyService(nil)

	t.Run("nil event", func(t *testing.T) {
		strategy, timeline := svc.Classify(nil)
		assert.Equal(t, models.StrategySingleMark, strategy)
		assert.Empty(t, timeline)
	})

	t.Run("missing timestamps", func(t *testing.T) {
		strategy, timeline := svc.Classify(&models.Event{ID: "evt-2", EventType: "Hackathon"})
		assert.Equal(t, models.StrategySingleMark, strategy)
		assert.Empty(t, timeline)
	})

	t.Run("end before start", func(t *testing.T) {
		start := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)
		end := start.Add(-time.Hour)
		strategy, timeline := svc.Classify(&models.Event{ID: "evt-3", EventType: "Workshop", StartAt: &start, EndAt: &end})
		assert.Equal(t, models.StrategySingleMark, strategy)
		assert.Empty(t, timeline)
	})
}

func TestTimelineShapes(t *testing.T) {
	svc := NewStrategyService(nil)
	base := time.Date(2026, time.March, 6, 18, 0, 0, 0, time.UTC)

	t.Run("single mark has one full-span window", func(t *testing.T) {
		event := eventWithSpan("Workshop", "", base, 2*time.Hour)
		_, timeline := svc.Classify(event)
		require.Len(t, timeline, 1)
		assert.Equal(t, *event.StartAt, timeline[0].OpensAt)
		assert.Equal(t, *event.EndAt, timeline[0].ClosesAt)
	})

	t.Run("hackathon sessions are contiguous and cover the span", func(t *testing.T) {
		event := eventWithSpan("Hackathon", "", base, 48*time.Hour)
		strategy, timeline := svc.Classify(event)
		require.Equal(t, models.StrategySessionBased, strategy)
		require.GreaterOrEqual(t, len(timeline), 2)

		assert.Equal(t, *event.StartAt, timeline[0].OpensAt)
		assert.Equal(t, *event.EndAt, timeline[len(timeline)-1].ClosesAt)
		for i := 1; i < len(timeline); i++ {
			assert.Equal(t, timeline[i-1].ClosesAt, timeline[i].OpensAt)
		}
	})

	t.Run("day windows break at midnight", func(t *testing.T) {
		start := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
		event := eventWithSpan("Industrial Visit", "", start, 28*time.Hour)
		strategy, timeline := svc.Classify(event)
		require.Equal(t, models.StrategyDayBased, strategy)
		require.Len(t, timeline, 2)

		assert.Equal(t, "day-1", timeline[0].Name)
		assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), timeline[0].ClosesAt)
		assert.Equal(t, *event.EndAt, timeline[1].ClosesAt)
	})

	t.Run("milestone timeline has three named phases", func(t *testing.T) {
		event := eventWithSpan("Cultural", "dance competition finals", base, 72*time.Hour)
		strategy, timeline := svc.Classify(event)
		require.Equal(t, models.StrategyMilestoneBased, strategy)
		require.Len(t, timeline, 3)
		assert.Equal(t, "registration", timeline[0].Name)
		assert.Equal(t, "performance", timeline[1].Name)
		assert.Equal(t, "award", timeline[2].Name)
		assert.Equal(t, *event.EndAt, timeline[2].ClosesAt)
	})
}
