package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/llm"
	"github.com/digkill/gddforge/internal/models"
	"github.com/digkill/gddforge/internal/storage"
	"github.com/digkill/gddforge/pkg/textutil"
)

const (
	generationCost = 1
	// width of generations.game_name; the archived document keeps the full name.
	maxGameNameLen = 255
)

// State is a step of a single generation request.
type State string

const (
	StateIdle          State = "idle"
	StateCreditChecked State = "credit_checked"
	StateGenerating    State = "generating"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
	StateBlocked       State = "blocked"
)

// Warnings attached to a completed generation whose deduction did not go through.
const (
	WarningBalanceInconsistent = "balance_inconsistent"
	WarningLedgerUnavailable   = "ledger_unavailable"
)

type GenerationOutcome struct {
	ID       string
	State    State
	Result   models.GDDResult
	Deducted bool
	Warning  string
	// Credits is the balance re-read after the deduction; nil when the read failed.
	Credits  *int
	Archived bool
}

// GenerationService runs Idle -> CreditChecked -> Generating -> Completed | Failed,
// or stops at Blocked when the balance is empty. Credits are taken only after a
// successful generation.
type GenerationService struct {
	ledger      *LedgerService
	generator   Generator
	generations GenerationStore
	archive     DocumentArchive
	timeout     time.Duration
	log         zerolog.Logger
}

func NewGenerationService(ledger *LedgerService, generator Generator, generations GenerationStore, archive DocumentArchive, timeout time.Duration, log zerolog.Logger) *GenerationService {
	return &GenerationService{
		ledger:      ledger,
		generator:   generator,
		generations: generations,
		archive:     archive,
		timeout:     timeout,
		log:         log.With().Str("component", "generation").Logger(),
	}
}

func (s *GenerationService) Generate(ctx context.Context, userID string, form models.GDDForm) (*GenerationOutcome, error) {
	if strings.TrimSpace(form.GameName) == "" {
		return nil, fmt.Errorf("%w: game name is required", ErrInvalidForm)
	}

	out := &GenerationOutcome{ID: uuid.NewString(), State: StateIdle}
	log := s.log.With().Str("user_id", userID).Str("generation_id", out.ID).Logger()

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		out.State = StateFailed
		return out, err
	}
	if balance < generationCost {
		out.State = StateBlocked
		log.Info().Int("balance", balance).Msg("generation blocked")
		return out, ErrInsufficientCredits
	}
	out.State = StateCreditChecked
	log.Debug().Int("balance", balance).Msg("credit checked")

	out.State = StateGenerating
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	result, err := s.generator.Generate(genCtx, form)
	cancel()
	if err != nil {
		out.State = StateFailed
		log.Error().Err(err).Msg("generation failed")
		return out, classifyGatewayError(err)
	}

	// The document exists from here on; losing the caller must not lose the charge.
	ctx = context.WithoutCancel(ctx)

	out.Result = result
	out.State = StateCompleted

	ok, err := s.ledger.TryDeduct(ctx, userID, generationCost)
	switch {
	case err != nil:
		out.Warning = WarningLedgerUnavailable
		log.Error().Err(err).Msg("deduction after generation failed")
	case !ok:
		out.Warning = WarningBalanceInconsistent
		log.Warn().Msg("balance no longer covered the generation")
	default:
		out.Deducted = true
	}

	if credits, err := s.ledger.GetBalance(ctx, userID); err == nil {
		out.Credits = &credits
	}

	s.record(ctx, log, userID, form.GameName, out)
	return out, nil
}

// record archives the document and logs the generation. Failures are only logged.
func (s *GenerationService) record(ctx context.Context, log zerolog.Logger, userID, gameName string, out *GenerationOutcome) {
	gen := models.Generation{
		ID:       out.ID,
		UserID:   userID,
		GameName: textutil.Truncate(gameName, maxGameNameLen),
		Deducted: out.Deducted,
	}

	if s.archive != nil {
		key, err := s.archive.Store(ctx, userID, out.ID, storage.RenderMarkdown(gameName, out.Result))
		if err != nil {
			log.Error().Err(err).Msg("archive document")
		} else {
			gen.ObjectKey = key
			out.Archived = true
		}
	}

	if err := s.generations.Log(ctx, gen); err != nil {
		log.Error().Err(err).Msg("log generation")
	}
}

func (s *GenerationService) List(ctx context.Context, userID string, limit int) ([]models.Generation, error) {
	list, err := s.generations.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return list, nil
}

// DownloadURL returns a presigned link to the caller's archived document.
func (s *GenerationService) DownloadURL(ctx context.Context, userID, generationID string) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("%w: document archive", ErrNotConfigured)
	}
	gen, err := s.generations.Get(ctx, userID, generationID)
	if err != nil {
		return "", fmt.Errorf("get generation: %w", err)
	}
	if gen == nil {
		return "", ErrGenerationNotFound
	}
	if gen.ObjectKey == "" {
		return "", ErrDocumentNotArchived
	}
	return s.archive.DownloadURL(ctx, gen.ObjectKey)
}

func classifyGatewayError(err error) error {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return fmt.Errorf("%w: %w", ErrNotConfigured, err)
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
}
