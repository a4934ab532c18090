package service

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

import (
	"context"

	"github.com/digkill/gddforge/internal/lemonsqueezy"
	"github.com/digkill/gddforge/internal/models"
)

// AccountStore provides the atomic primitives the ledger is built on.
type AccountStore interface {
	Get(ctx context.Context, userID string) (*models.Account, error)
	CreateIfAbsent(ctx context.Context, userID, email, displayName string, credits int) (bool, error)
	ConsumeCredits(ctx context.Context, userID string, amount int) (bool, error)
	AddCredits(ctx context.Context, userID string, amount int, label string) (bool, error)
}

type OrderStore interface {
	Record(ctx context.Context, order models.ProcessedOrder) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.ProcessedOrder, error)
}

type GenerationStore interface {
	Log(ctx context.Context, gen models.Generation) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Generation, error)
	Get(ctx context.Context, userID, id string) (*models.Generation, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Generator is the slow, fallible document generation gateway.
type Generator interface {
	Generate(ctx context.Context, form models.GDDForm) (models.GDDResult, error)
}

type DocumentArchive interface {
	Store(ctx context.Context, userID, documentID string, document []byte) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req lemonsqueezy.CheckoutRequest) (string, error)
}

type PackageCatalog interface {
	Packages() []models.CreditPackage
	ByID(id string) (models.CreditPackage, bool)
	ByVariant(variantID string) (models.CreditPackage, bool)
}
