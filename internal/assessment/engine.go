package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/scoring"
	"github.com/momentohub/MomentoBot/internal/store"
)

// Engine is the per-user assessment state machine. All transitions read and
// write the persisted user profile; the persisted progress is authoritative,
// so concurrent turns for one user resolve last-write-wins.
type Engine struct {
	catalog  *Catalog
	store    store.Store
	analyzer Analyzer
}

// NewEngine creates an assessment engine over the given catalog, store, and
// analyzer.
func NewEngine(catalog *Catalog, st store.Store, analyzer Analyzer) *Engine {
	return &Engine{catalog: catalog, store: st, analyzer: analyzer}
}

// List returns the catalog summaries.
func (e *Engine) List() []models.AssessmentSummary {
	return e.catalog.List()
}

// Catalog exposes the engine's catalog for suggestion lookups.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Start begins the named assessment for a user, creating the profile lazily.
// Restarting the assessment already in flight is idempotent: the current step
// is returned and recorded answers are preserved.
func (e *Engine) Start(ctx context.Context, name, userID string) (*models.AssessmentResult, error) {
	def, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownAssessment, name)
	}

	profile, err := e.loadOrCreate(userID)
	if err != nil {
		return nil, err
	}

	if profile.Progress.CurrentAssessment == name {
		step := def.Steps[clampStep(profile.Progress.StepIndex, len(def.Steps))]
		slog.Debug("Engine.Start: assessment already in flight, returning current step",
			"userID", userID, "assessment", name, "stepIndex", profile.Progress.StepIndex)
		return &models.AssessmentResult{
			Status:      models.AssessmentStatusStarted,
			Assessment:  name,
			CurrentStep: &step,
			Progress:    profile.Progress,
			Answers:     profile.Progress.Answers,
		}, nil
	}

	profile.Progress = models.Progress{
		CurrentAssessment: name,
		StepIndex:         0,
		Answers:           make(map[string]string),
	}
	if err := e.save(profile); err != nil {
		return nil, err
	}

	step := def.Steps[0]
	slog.Info("Engine.Start: assessment started", "userID", userID, "assessment", name)
	return &models.AssessmentResult{
		Status:      models.AssessmentStatusStarted,
		Assessment:  name,
		CurrentStep: &step,
		Progress:    profile.Progress,
	}, nil
}

// Answer records a raw answer for the in-flight assessment and advances the
// state machine. With an explicit stepKey the targeted step is overwritten;
// otherwise the current step is answered. Completing the final step runs the
// analysis, replaces the profile section, recomputes scoring, and resets
// progress.
func (e *Engine) Answer(ctx context.Context, name, userID, rawAnswer, stepKey string) (*models.AssessmentResult, error) {
	def, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownAssessment, name)
	}

	profile, err := e.store.GetUserProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	if profile == nil || profile.Progress.CurrentAssessment != name {
		return nil, fmt.Errorf("%w: %s", models.ErrNoActiveAssessment, name)
	}

	// An answer with no step key while still at step 0 is ambiguous: the
	// user may be confirming the start rather than answering the first
	// question. Re-dispatch step 0 and record nothing; the caller decides
	// how to disambiguate.
	if stepKey == "" && profile.Progress.StepIndex == 0 {
		step := def.Steps[0]
		slog.Debug("Engine.Answer: no step key at step 0, treating as start confirmation",
			"userID", userID, "assessment", name)
		return &models.AssessmentResult{
			Status:      models.AssessmentStatusConfirmStart,
			Assessment:  name,
			CurrentStep: &step,
			Progress:    profile.Progress,
		}, nil
	}

	targetIndex := profile.Progress.StepIndex
	if stepKey != "" {
		targetIndex = def.StepIndex(stepKey)
		if targetIndex < 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrInvalidStep, stepKey)
		}
	} else if targetIndex >= len(def.Steps) {
		return nil, fmt.Errorf("%w: step index %d out of range", models.ErrInvalidStep, targetIndex)
	}

	if profile.Progress.Answers == nil {
		profile.Progress.Answers = make(map[string]string)
	}
	profile.Progress.Answers[def.Steps[targetIndex].Key] = rawAnswer
	profile.Progress.StepIndex = targetIndex + 1

	if profile.Progress.StepIndex >= len(def.Steps) {
		return e.complete(ctx, def, profile)
	}

	if err := e.save(profile); err != nil {
		return nil, err
	}

	nextStep := def.Steps[profile.Progress.StepIndex]
	slog.Debug("Engine.Answer: answer recorded",
		"userID", userID, "assessment", name, "stepIndex", profile.Progress.StepIndex)
	return &models.AssessmentResult{
		Status:     models.AssessmentStatusInProgress,
		Assessment: name,
		NextStep:   &nextStep,
		Progress:   profile.Progress,
		Answers:    profile.Progress.Answers,
	}, nil
}

// Status returns a read-only projection of the in-flight assessment.
func (e *Engine) Status(ctx context.Context, name, userID string) (*models.AssessmentResult, error) {
	def, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownAssessment, name)
	}

	profile, err := e.store.GetUserProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	if profile == nil || profile.Progress.CurrentAssessment != name {
		return nil, fmt.Errorf("%w: %s", models.ErrNoActiveAssessment, name)
	}

	step := def.Steps[clampStep(profile.Progress.StepIndex, len(def.Steps))]
	status := models.AssessmentStatusInProgress
	if profile.Progress.StepIndex == 0 {
		status = models.AssessmentStatusStarted
	}
	return &models.AssessmentResult{
		Status:      status,
		Assessment:  name,
		CurrentStep: &step,
		Progress:    profile.Progress,
		Answers:     profile.Progress.Answers,
	}, nil
}

// CurrentStepPrompt returns the prompt for the step the user is on, used by
// the orchestrator fast path. Returns false when no assessment is in flight.
func (e *Engine) CurrentStepPrompt(progress models.Progress) (string, bool) {
	if !progress.Active() {
		return "", false
	}
	def, ok := e.catalog.Get(progress.CurrentAssessment)
	if !ok {
		return "", false
	}
	return def.Steps[clampStep(progress.StepIndex, len(def.Steps))].Prompt, true
}

// complete runs the analysis function, merges its fields into the profile
// section, recomputes scoring, and resets progress. Analysis failure never
// drops the collected raw answers.
func (e *Engine) complete(ctx context.Context, def models.AssessmentDefinition, profile *models.UserProfile) (*models.AssessmentResult, error) {
	answers := profile.Progress.Answers

	fields, insights, err := e.analyzer.Analyze(ctx, profile.ID, def, answers, profile.Profile)
	if err != nil {
		slog.Error("Engine.complete: analysis failed, keeping raw answers",
			"error", err, "userID", profile.ID, "assessment", def.Name)
		fields = rawFields(answers)
		insights = []string{}
	}

	profile.ReplaceSection(def.ProfileSection, fields)
	snapshot := scoring.Score(profile.Profile)
	profile.Scoring = &snapshot
	profile.Progress = models.Progress{}

	if err := e.save(profile); err != nil {
		return nil, err
	}

	slog.Info("Engine.complete: assessment completed",
		"userID", profile.ID, "assessment", def.Name, "moment", snapshot.Moment)
	return &models.AssessmentResult{
		Status:     models.AssessmentStatusCompleted,
		Assessment: def.Name,
		Progress:   profile.Progress,
		Answers:    answers,
		Results:    fields,
		Insights:   insights,
	}, nil
}

func (e *Engine) loadOrCreate(userID string) (*models.UserProfile, error) {
	profile, err := e.store.GetUserProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	if profile == nil {
		profile = models.NewUserProfile(userID)
	}
	return profile, nil
}

func (e *Engine) save(profile *models.UserProfile) error {
	profile.Status = models.UserStatusActive
	profile.UpdatedAt = time.Now()
	if err := e.store.SaveUserProfile(*profile); err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

// clampStep bounds a step index to a valid index into an n-step list.
func clampStep(i, n int) int {
	if i >= n {
		return n - 1
	}
	if i < 0 {
		return 0
	}
	return i
}
