package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/digkill/gddforge/internal/llm"
	"github.com/digkill/gddforge/internal/mock"
	"github.com/digkill/gddforge/internal/models"
)

type generationFixture struct {
	svc         *GenerationService
	accounts    *memAccounts
	generator   *mock.MockGenerator
	generations *mock.MockGenerationStore
	archive     *mock.MockDocumentArchive
}

func newGenerationFixture(t *testing.T, withArchive bool) *generationFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &generationFixture{
		accounts:    newMemAccounts(),
		generator:   mock.NewMockGenerator(ctrl),
		generations: mock.NewMockGenerationStore(ctrl),
	}
	var archive DocumentArchive
	if withArchive {
		f.archive = mock.NewMockDocumentArchive(ctrl)
		archive = f.archive
	}
	ledger := NewLedgerService(f.accounts, 2, zerolog.Nop())
	f.svc = NewGenerationService(ledger, f.generator, f.generations, archive, time.Second, zerolog.Nop())
	return f
}

var sampleForm = models.GDDForm{GameName: "Star Forge", Genre: "Strategy"}

var sampleResult = models.GDDResult{DocumentText: "# Star Forge\n\nOverview", DiagramSource: "graph TD; A-->B"}

func TestGenerate_SuccessDeductsOneCredit(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.accounts.set("u1", 3)

	f.generator.EXPECT().Generate(gomock.Any(), sampleForm).Return(sampleResult, nil)
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, gen models.Generation) error {
			assert.Equal(t, "u1", gen.UserID)
			assert.Equal(t, "Star Forge", gen.GameName)
			assert.True(t, gen.Deducted)
			assert.Empty(t, gen.ObjectKey)
			return nil
		},
	)

	out, err := f.svc.Generate(context.Background(), "u1", sampleForm)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, out.State)
	assert.True(t, out.Deducted)
	assert.Empty(t, out.Warning)
	assert.Equal(t, sampleResult, out.Result)
	require.NotNil(t, out.Credits)
	assert.Equal(t, 2, *out.Credits)
	assert.Equal(t, 2, f.accounts.credits("u1"))
	assert.False(t, out.Archived)
}

func TestGenerate_BlockedWithoutCredits(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.accounts.set("u1", 0)

	out, err := f.svc.Generate(context.Background(), "u1", sampleForm)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	require.NotNil(t, out)
	assert.Equal(t, StateBlocked, out.State)
	assert.Zero(t, f.accounts.credits("u1"))
}

func TestGenerate_UnknownUserIsBlocked(t *testing.T) {
	f := newGenerationFixture(t, false)

	out, err := f.svc.Generate(context.Background(), "ghost", sampleForm)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, StateBlocked, out.State)
	assert.Zero(t, f.accounts.inserts)
}

func TestGenerate_InvalidForm(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.accounts.set("u1", 1)

	_, err := f.svc.Generate(context.Background(), "u1", models.GDDForm{GameName: "   "})
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, 1, f.accounts.credits("u1"))
}

func TestGenerate_GatewayFailureDoesNotCharge(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"upstream", llm.ErrUpstream, ErrGenerationFailed},
		{"empty reply", llm.ErrEmptyReply, ErrGenerationFailed},
		{"timeout", llm.ErrTimeout, ErrGenerationTimeout},
		{"deadline", context.DeadlineExceeded, ErrGenerationTimeout},
		{"not configured", llm.ErrNotConfigured, ErrNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(t, false)
			f.accounts.set("u1", 1)
			f.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(models.GDDResult{}, tt.err)

			out, err := f.svc.Generate(context.Background(), "u1", sampleForm)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StateFailed, out.State)
			assert.False(t, out.Deducted)
			assert.Equal(t, 1, f.accounts.credits("u1"))
		})
	}
}

func TestGenerate_GeneratorGetsDeadline(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.accounts.set("u1", 1)

	f.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.GDDForm) (models.GDDResult, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return sampleResult, nil
		},
	)
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.Generate(context.Background(), "u1", sampleForm)
	require.NoError(t, err)
}

// The last credit is spent elsewhere while the document is being generated.
func TestGenerate_BalanceRaceKeepsResultWithWarning(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.accounts.set("u1", 1)

	f.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.GDDForm) (models.GDDResult, error) {
			f.accounts.set("u1", 0)
			return sampleResult, nil
		},
	)
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, gen models.Generation) error {
			assert.False(t, gen.Deducted)
			return nil
		},
	)

	out, err := f.svc.Generate(context.Background(), "u1", sampleForm)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, sampleResult, out.Result)
	assert.False(t, out.Deducted)
	assert.Equal(t, WarningBalanceInconsistent, out.Warning)
	assert.Zero(t, f.accounts.credits("u1"))
}

func TestGenerate_CallerGoneStillCharges(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.accounts.set("u1", 2)
	ctx, cancel := context.WithCancel(context.Background())

	f.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.GDDForm) (models.GDDResult, error) {
			cancel()
			return sampleResult, nil
		},
	)
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.Generation) error {
			assert.NoError(t, ctx.Err())
			return nil
		},
	)

	out, err := f.svc.Generate(ctx, "u1", sampleForm)
	require.NoError(t, err)
	assert.True(t, out.Deducted)
	assert.Equal(t, 1, f.accounts.credits("u1"))
}

func TestGenerate_LedgerDownAfterGeneration(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mock.NewMockAccountStore(ctrl)
	generator := mock.NewMockGenerator(ctrl)
	generations := mock.NewMockGenerationStore(ctrl)
	svc := NewGenerationService(NewLedgerService(accounts, 2, zerolog.Nop()), generator, generations, nil, time.Second, zerolog.Nop())
	down := errors.New("connection reset")

	gomock.InOrder(
		accounts.EXPECT().Get(gomock.Any(), "u1").Return(&models.Account{UserID: "u1", Credits: 1}, nil),
		generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(sampleResult, nil),
		accounts.EXPECT().ConsumeCredits(gomock.Any(), "u1", 1).Return(false, down),
		accounts.EXPECT().Get(gomock.Any(), "u1").Return(nil, down),
		generations.EXPECT().Log(gomock.Any(), gomock.Any()).Return(down),
	)

	out, err := svc.Generate(context.Background(), "u1", sampleForm)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, WarningLedgerUnavailable, out.Warning)
	assert.Nil(t, out.Credits)
}

func TestGenerate_LedgerDownBeforeGeneration(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mock.NewMockAccountStore(ctrl)
	generator := mock.NewMockGenerator(ctrl)
	svc := NewGenerationService(NewLedgerService(accounts, 2, zerolog.Nop()), generator, mock.NewMockGenerationStore(ctrl), nil, time.Second, zerolog.Nop())

	accounts.EXPECT().Get(gomock.Any(), "u1").Return(nil, errors.New("no route to host"))

	out, err := svc.Generate(context.Background(), "u1", sampleForm)
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	assert.Equal(t, StateFailed, out.State)
}

func TestGenerate_ArchivesDocument(t *testing.T) {
	f := newGenerationFixture(t, true)
	f.accounts.set("u1", 1)

	f.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(sampleResult, nil)
	f.archive.EXPECT().Store(gomock.Any(), "u1", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _, id string, doc []byte) (string, error) {
			assert.NotEmpty(t, id)
			assert.Contains(t, string(doc), "```mermaid")
			return "gdd/u1/2026/10/18/" + id + ".md", nil
		},
	)
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, gen models.Generation) error {
			assert.Equal(t, "gdd/u1/2026/10/18/"+gen.ID+".md", gen.ObjectKey)
			return nil
		},
	)

	out, err := f.svc.Generate(context.Background(), "u1", sampleForm)
	require.NoError(t, err)
	assert.True(t, out.Archived)
}

func TestGenerate_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newGenerationFixture(t, true)
	f.accounts.set("u1", 1)

	f.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(sampleResult, nil)
	f.archive.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("access denied"))
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, gen models.Generation) error {
			assert.Empty(t, gen.ObjectKey)
			return nil
		},
	)

	out, err := f.svc.Generate(context.Background(), "u1", sampleForm)
	require.NoError(t, err)
	assert.True(t, out.Deducted)
	assert.False(t, out.Archived)
}

func TestDownloadURL(t *testing.T) {
	f := newGenerationFixture(t, true)
	ctx := context.Background()

	f.generations.EXPECT().Get(gomock.Any(), "u1", "g1").Return(&models.Generation{ID: "g1", UserID: "u1", ObjectKey: "gdd/u1/g1.md"}, nil)
	f.archive.EXPECT().DownloadURL(gomock.Any(), "gdd/u1/g1.md").Return("https://s3.example/gdd/u1/g1.md?sig", nil)
	link, err := f.svc.DownloadURL(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/gdd/u1/g1.md?sig", link)

	f.generations.EXPECT().Get(gomock.Any(), "u2", "g1").Return(nil, nil)
	_, err = f.svc.DownloadURL(ctx, "u2", "g1")
	assert.ErrorIs(t, err, ErrGenerationNotFound)

	f.generations.EXPECT().Get(gomock.Any(), "u1", "g2").Return(&models.Generation{ID: "g2", UserID: "u1"}, nil)
	_, err = f.svc.DownloadURL(ctx, "u1", "g2")
	assert.ErrorIs(t, err, ErrDocumentNotArchived)

	noArchive := newGenerationFixture(t, false)
	_, err = noArchive.svc.DownloadURL(ctx, "u1", "g1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_FreeCreditThenBlocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := newMemAccounts()
	generator := mock.NewMockGenerator(ctrl)
	generations := mock.NewMockGenerationStore(ctrl)
	ledger := NewLedgerService(accounts, 1, zerolog.Nop())
	svc := NewGenerationService(ledger, generator, generations, nil, time.Second, zerolog.Nop())
	ctx := context.Background()

	_, err := ledger.EnsureAccount(ctx, "new", "", "")
	require.NoError(t, err)
	balance, err := ledger.GetBalance(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, 1, balance)

	generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(sampleResult, nil).Times(1)
	generations.EXPECT().Log(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	out, err := svc.Generate(ctx, "new", sampleForm)
	require.NoError(t, err)
	assert.True(t, out.Deducted)
	assert.Equal(t, 0, *out.Credits)

	out, err = svc.Generate(ctx, "new", sampleForm)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, StateBlocked, out.State)
}

func TestGenerate_LongGameNameFitsLogColumn(t *testing.T) {
	f := newGenerationFixture(t, true)
	f.accounts.set("u1", 1)
	form := models.GDDForm{GameName: strings.Repeat("Ω", 300), Genre: "Puzzle"}
	res := models.GDDResult{DocumentText: "Overview only"}

	f.generator.EXPECT().Generate(gomock.Any(), form).Return(res, nil)
	f.archive.EXPECT().Store(gomock.Any(), "u1", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _, id string, doc []byte) (string, error) {
			assert.Contains(t, string(doc), form.GameName)
			return "gdd/u1/" + id + ".md", nil
		},
	)
	f.generations.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, gen models.Generation) error {
			assert.Equal(t, maxGameNameLen, utf8.RuneCountInString(gen.GameName))
			assert.True(t, strings.HasPrefix(form.GameName, gen.GameName))
			return nil
		},
	)

	out, err := f.svc.Generate(context.Background(), "u1", form)
	require.NoError(t, err)
	assert.True(t, out.Deducted)
	assert.True(t, out.Archived)
}
