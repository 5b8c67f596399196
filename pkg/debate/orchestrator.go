package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"debatearena/pkg/config"
	"debatearena/pkg/dispatch"
	"debatearena/pkg/llm"
	"debatearena/pkg/llm/middleware/metrics"
	"debatearena/pkg/logx"
	"debatearena/pkg/utils"
)

// Dispatcher is the part of the dispatch layer the orchestrator uses.
type Dispatcher interface {
	GenerateResponse(ctx context.Context, modelID, prompt string, opts dispatch.Options) (string, error)
	StreamResponse(ctx context.Context, modelID, prompt string, opts dispatch.Options, onChunk func(string)) (string, error)
	GetModelInfo(modelID string) (config.ModelInfo, error)
}

// Saver persists debate records.
type Saver interface {
	SaveDebate(ctx context.Context, d *Debate) error
}

// ProgressFunc receives human-readable progress lines.
type ProgressFunc func(msg string)

// StreamFunc receives response text as it is produced.
type StreamFunc func(text string)

// Orchestrator runs debates turn by turn.
type Orchestrator struct {
	dispatcher Dispatcher
	store      Saver
	recorder   metrics.Recorder
	logger     *logx.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(dispatcher Dispatcher, store Saver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dispatcher: dispatcher,
		store:      store,
		recorder:   metrics.Nop(),
		logger:     logx.NewLogger("debate"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create returns a new pending debate on topic using the named format.
func (o *Orchestrator) Create(topic, formatKey string) (*Debate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	format, err := LookupFormat(formatKey)
	if err != nil {
		return nil, err
	}
	return &Debate{
		ID:           NewID(),
		Topic:        topic,
		Format:       format,
		Participants: make([]Participant, 0, 2),
		History:      []HistoryEntry{},
		Status:       StatusPending,
	}, nil
}

// AddParticipant appends a side to a pending debate. The model must be
// debate-capable and differ from the other participant's model.
func (o *Orchestrator) AddParticipant(d *Debate, modelID, position string) error {
	if d.Status != StatusPending {
		return ErrAlreadyRun
	}
	if len(d.Participants) >= 2 {
		return fmt.Errorf("%w: already have %d", ErrParticipantCount, len(d.Participants))
	}
	if d.ParticipantIndex(modelID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, modelID)
	}

	info, err := o.dispatcher.GetModelInfo(modelID)
	if err != nil {
		return err //nolint:wrapcheck // Already names the model
	}
	if !info.Debater {
		return fmt.Errorf("%w: %s", ErrNotDebater, modelID)
	}

	position = strings.TrimSpace(position)
	if position == "" {
		return fmt.Errorf("position for %s is empty", modelID)
	}

	d.Participants = append(d.Participants, Participant{
		ModelID:     modelID,
		Position:    position,
		DisplayName: info.DisplayName,
	})
	return nil
}

// Run executes every round of d. Participant 0 speaks before participant 1 in
// each round. A turn the dispatch layer cannot complete is recorded as a failed
// entry and the debate continues. When ctx ends the partial transcript is saved
// with status cancelled and an error wrapping ErrCancelled is returned.
func (o *Orchestrator) Run(ctx context.Context, d *Debate, progress ProgressFunc, stream StreamFunc) error {
	if len(d.Participants) != 2 {
		return ErrParticipantCount
	}
	if d.Status != StatusPending {
		return ErrAlreadyRun
	}
	if progress == nil {
		progress = func(string) {}
	}

	d.Status = StatusRunning
	o.logger.Info("Starting debate %s (%s, %d rounds): %s", d.ID, d.Format.Key, len(d.Format.Rounds), d.Topic)

	for roundIdx := range d.Format.Rounds {
		d.CurrentRound = roundIdx
		round := d.Format.Rounds[roundIdx]

		for _, p := range d.Participants {
			if err := ctx.Err(); err != nil {
				return o.cancel(ctx, d, err)
			}

			entry, err := o.turn(ctx, d, p, roundIdx, progress, stream)
			if err != nil {
				return o.cancel(ctx, d, err)
			}
			d.History = append(d.History, entry)
		}

		progress(fmt.Sprintf("Completed round %d of %d", roundIdx+1, len(d.Format.Rounds)))
		logx.Debug(ctx, "debate", "debate %s completed round %d (%s)", d.ID, roundIdx+1, round.Name)
	}

	d.Completed = true
	d.Status = StatusCompleted
	o.recorder.IncDebate(d.Format.Key, string(StatusCompleted))

	if err := o.store.SaveDebate(ctx, d); err != nil {
		return fmt.Errorf("save debate %s: %w", d.ID, err)
	}
	o.logger.Info("Debate %s completed with %d turns", d.ID, len(d.History))
	return nil
}

// turn runs one participant's turn. It only returns an error when ctx ended;
// other failures become a placeholder entry.
func (o *Orchestrator) turn(ctx context.Context, d *Debate, p Participant, roundIdx int, progress ProgressFunc, stream StreamFunc) (HistoryEntry, error) {
	round := d.Format.Rounds[roundIdx]
	prompt := BuildPrompt(d, p, roundIdx)
	systemPrompt := SystemPrompt(d, p, roundIdx)
	opts := dispatch.Options{SystemPrompt: systemPrompt, MaxTokens: round.Tokens}

	progress(fmt.Sprintf("%s - %s", round.Name, p.Label()))

	var response string
	var err error
	if stream != nil {
		stream(fmt.Sprintf("\n--- %s - %s ---\n\n", p.Label(), round.Name))
		response, err = o.dispatcher.StreamResponse(ctx, p.ModelID, prompt, opts, stream)
		if errors.Is(err, llm.ErrStreamingUnsupported) {
			response, err = o.dispatcher.GenerateResponse(ctx, p.ModelID, prompt, opts)
			if err == nil {
				stream(response)
			}
		}
	} else {
		response, err = o.dispatcher.GenerateResponse(ctx, p.ModelID, prompt, opts)
	}

	entry := HistoryEntry{
		Round:        roundIdx,
		RoundName:    round.Name,
		ModelID:      p.ModelID,
		Position:     p.Position,
		Prompt:       prompt,
		Response:     response,
		PromptTokens: utils.CountTokens(systemPrompt + "\n" + prompt),
	}

	if err != nil {
		if ctx.Err() != nil {
			return HistoryEntry{}, ctx.Err()
		}
		o.logger.Warn("Turn failed for %s in %s of debate %s: %v", p.ModelID, round.Name, d.ID, err)
		if stream != nil {
			stream(fmt.Sprintf("\nError: %v\n", err))
		}
		entry.Response = fmt.Sprintf("Error generating response: %v", err)
		entry.Failed = true
	}
	return entry, nil
}

func (o *Orchestrator) cancel(ctx context.Context, d *Debate, cause error) error {
	d.Status = StatusCancelled
	o.recorder.IncDebate(d.Format.Key, string(StatusCancelled))
	o.logger.Warn("Debate %s cancelled in round %d after %d turns", d.ID, d.CurrentRound+1, len(d.History))

	if err := o.store.SaveDebate(context.WithoutCancel(ctx), d); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrCancelled, cause), fmt.Errorf("save debate %s: %w", d.ID, err))
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
