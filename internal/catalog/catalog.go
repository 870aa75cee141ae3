package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

// Category groups plans by the body area or training style they target.
type Category string

const (
	CategoryAbs         Category = "abs"
	CategoryArm         Category = "arm"
	CategoryChest       Category = "chest"
	CategoryEndurance   Category = "endurance"
	CategoryFatBurning  Category = "fat_burning"
	CategoryFlexibility Category = "flexibility"
	CategoryFullBody    Category = "full_body"
	CategoryLeg         Category = "leg"
)

// Difficulty is the intended experience level of a plan or exercise.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// GoalType is the fitness goal a plan supports. Progress entries use the same values.
type GoalType string

const (
	GoalWeight   GoalType = "weight"
	GoalStrength GoalType = "strength"
	GoalStamina  GoalType = "stamina"
)

// ValidGoalType reports whether g is one of the known goal types.
func ValidGoalType(g GoalType) bool {
	switch g {
	case GoalWeight, GoalStrength, GoalStamina:
		return true
	}
	return false
}

var (
	ErrEmptyCatalog = errors.New("catalog has no plans")
	ErrPlanNotFound = errors.New("plan not found")
)

// Exercise is one timed entry of a workout plan.
type Exercise struct {
	ID            string     `yaml:"id" json:"id"`
	Name          string     `yaml:"name" json:"name"`
	Description   string     `yaml:"description" json:"description,omitempty"`
	Duration      int        `yaml:"duration" json:"duration"` // seconds
	Sets          *int       `yaml:"sets,omitempty" json:"sets,omitempty"`
	Reps          *int       `yaml:"reps,omitempty" json:"reps,omitempty"`
	TargetMuscles []string   `yaml:"target_muscles" json:"target_muscles"`
	Equipment     []string   `yaml:"equipment" json:"equipment"`
	Tips          []string   `yaml:"tips" json:"tips"`
	Difficulty    Difficulty `yaml:"difficulty" json:"difficulty"`
}

// WorkoutPlan is a pre-authored ordered list of exercises with a uniform rest between them.
type WorkoutPlan struct {
	ID                   string     `yaml:"id" json:"id"`
	Name                 string     `yaml:"name" json:"name"`
	Description          string     `yaml:"description" json:"description,omitempty"`
	Category             Category   `yaml:"category" json:"category"`
	Difficulty           Difficulty `yaml:"difficulty" json:"difficulty"`
	GoalType             GoalType   `yaml:"goal_type" json:"goal_type"`
	Calories             int        `yaml:"calories" json:"calories"`
	RestBetweenExercises int        `yaml:"rest_between_exercises" json:"rest_between_exercises"` // seconds
	Exercises            []Exercise `yaml:"exercises" json:"exercises"`
}

// EstimatedSeconds is the length of an uninterrupted run: all exercise durations
// plus one rest between each consecutive pair.
func (p WorkoutPlan) EstimatedSeconds() int {
	if len(p.Exercises) == 0 {
		return 0
	}
	total := p.RestBetweenExercises * (len(p.Exercises) - 1)
	for _, e := range p.Exercises {
		total += e.Duration
	}
	return total
}

// Validate checks the invariants a session relies on.
func (p WorkoutPlan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan %q: id is required", p.Name)
	}
	if len(p.Exercises) == 0 {
		return fmt.Errorf("plan %s: no exercises", p.ID)
	}
	if p.RestBetweenExercises < 0 {
		return fmt.Errorf("plan %s: rest_between_exercises must not be negative", p.ID)
	}
	for i, e := range p.Exercises {
		if e.Duration <= 0 {
			return fmt.Errorf("plan %s: exercise %d (%s) duration must be positive", p.ID, i, e.ID)
		}
	}
	return nil
}

// Filter narrows List results. Zero-valued fields match everything.
type Filter struct {
	Category   Category
	Difficulty Difficulty
	GoalType   GoalType
}

func (f Filter) match(p WorkoutPlan) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Difficulty != "" && p.Difficulty != f.Difficulty {
		return false
	}
	if f.GoalType != "" && p.GoalType != f.GoalType {
		return false
	}
	return true
}

// Catalog is an immutable, validated set of workout plans.
type Catalog struct {
	plans []WorkoutPlan
	byID  map[string]int
}

type catalogFile struct {
	Plans []WorkoutPlan `yaml:"plans"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		plans: f.Plans,
		byID:  make(map[string]int, len(f.Plans)),
	}
	for i, p := range f.Plans {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog validation: %w", err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog validation: duplicate plan id %s", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultPlans)
}

// Get returns the plan with the given id.
func (c *Catalog) Get(id string) (WorkoutPlan, error) {
	i, ok := c.byID[id]
	if !ok {
		return WorkoutPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return c.plans[i], nil
}

// List returns the plans matching f, ordered by category then name.
func (c *Catalog) List(f Filter) []WorkoutPlan {
	result := make([]WorkoutPlan, 0, len(c.plans))
	for _, p := range c.plans {
		if f.match(p) {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Len returns the number of plans.
func (c *Catalog) Len() int {
	return len(c.plans)
}
