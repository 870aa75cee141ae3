// Package events publishes workout domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/meltforce/fitrun/internal/models"
)

// EventWorkoutCompleted is the type header of completion events.
const EventWorkoutCompleted = "workout.completed"

// WorkoutCompleted is the payload of a completion event.
type WorkoutCompleted struct {
	EventID     string                  `json:"event_id"`
	EventType   string                  `json:"event_type"`
	OccurredAt  time.Time               `json:"occurred_at"`
	WorkoutID   string                  `json:"workout_id"`
	UserID      int                     `json:"user_id"`
	PlanID      string                  `json:"plan_id"`
	ElapsedSec  int                     `json:"total_elapsed_sec"`
	Calories    int                     `json:"calories"`
	Exercises   []models.ExerciseRecord `json:"exercises"`
	CompletedAt time.Time               `json:"completed_at"`
}

// Publisher turns completions into Kafka events. It satisfies the runner's
// recorder interface so it can sit next to the database recorder.
type Publisher struct {
	producer Producer
	topic    string
	log      *slog.Logger
	now      func() time.Time
}

// NewPublisher creates a Publisher writing to topic.
func NewPublisher(producer Producer, topic string, log *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, log: log, now: time.Now}
}

// RecordCompletion publishes a workout.completed event keyed by user, so one
// user's events stay ordered on a partition.
func (p *Publisher) RecordCompletion(ctx context.Context, c models.CompletedWorkout) error {
	evt := WorkoutCompleted{
		EventID:     c.ID.String(),
		EventType:   EventWorkoutCompleted,
		OccurredAt:  p.now().UTC(),
		WorkoutID:   c.ID.String(),
		UserID:      c.UserID,
		PlanID:      c.PlanID,
		ElapsedSec:  c.TotalElapsedSec,
		Calories:    c.Calories,
		Exercises:   c.Exercises,
		CompletedAt: c.CompletedAt,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding completion event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", c.UserID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventWorkoutCompleted)},
		},
	}
	if err := p.producer.WriteMessages(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publishing completion event: %w", err)
	}
	p.log.Debug("completion event published", "topic", p.topic, "workout_id", c.ID)
	return nil
}

// Close closes the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
