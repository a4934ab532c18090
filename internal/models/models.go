package models

import "time"

// Account is the per-user credit balance record.
type Account struct {
	UserID                string     `json:"userId"`
	Email                 string     `json:"email"`
	DisplayName           string     `json:"displayName,omitempty"`
	Credits               int        `json:"credits"`
	TotalCreditsUsed      int        `json:"totalCreditsUsed"`
	TotalCreditsPurchased int        `json:"totalCreditsPurchased"`
	CreatedAt             time.Time  `json:"createdAt"`
	LastUsedAt            *time.Time `json:"lastUsedAt,omitempty"`
	LastPurchaseAt        *time.Time `json:"lastPurchaseAt,omitempty"`
	LastPackage           string     `json:"lastPackage,omitempty"`
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Credits           int     `json:"credits" yaml:"credits"`
	PriceUSD          float64 `json:"priceUsd" yaml:"price_usd"`
	ExternalVariantID string  `json:"variantId" yaml:"variant_id"`
	CheckoutURL       string  `json:"-" yaml:"checkout_url"`
	Popular           bool    `json:"popular,omitempty" yaml:"popular"`
}

const (
	EventOrderCreated = "order_created"
	OrderStatusPaid   = "paid"
)

// PurchaseEvent is the part of a payment provider webhook the service acts on.
type PurchaseEvent struct {
	EventType string
	OrderID   string
	UserID    string
	VariantID string
	Status    string
	Email     string
}

// Actionable reports whether the event should result in a credit grant.
func (e PurchaseEvent) Actionable() bool {
	return e.EventType == EventOrderCreated &&
		e.Status == OrderStatusPaid &&
		e.UserID != "" &&
		e.VariantID != ""
}

// ProcessedOrder marks a provider order as applied to the ledger.
type ProcessedOrder struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	VariantID  string    `json:"variantId"`
	PackageID  string    `json:"packageId"`
	Credits    int       `json:"credits"`
	Status     string    `json:"status"`
	RawPayload string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Generation is the log entry of a completed document generation.
type Generation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	GameName  string    `json:"gameName"`
	ObjectKey string    `json:"objectKey,omitempty"`
	Deducted  bool      `json:"deducted"`
	CreatedAt time.Time `json:"createdAt"`
}

type Character struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Abilities   string `json:"abilities"`
}

// GDDForm is the structured game design input submitted by the user.
type GDDForm struct {
	GameName            string   `json:"gameName"`
	Tagline             string   `json:"tagline"`
	Genre               string   `json:"genre"`
	Platform            []string `json:"platform"`
	TargetAudience      string   `json:"targetAudience"`
	ESRBRating          string   `json:"esrbRating"`
	UniqueSellingPoints string   `json:"uniqueSellingPoints"`

	CoreMechanics       string `json:"coreMechanics"`
	ControlScheme       string `json:"controlScheme"`
	GameLoops           string `json:"gameLoops"`
	ProgressionSystem   string `json:"progressionSystem"`
	DifficultySettings  string `json:"difficultySettings"`
	MultiplayerFeatures string `json:"multiplayerFeatures"`

	StoryPremise   string `json:"storyPremise"`
	WorldSetting   string `json:"worldSetting"`
	MainConflict   string `json:"mainConflict"`
	NarrativeStyle string `json:"narrativeStyle"`

	Characters []Character `json:"characters"`

	LevelCount            string `json:"levelCount"`
	LevelDesignPhilosophy string `json:"levelDesignPhilosophy"`
	EnvironmentTypes      string `json:"environmentTypes"`

	ArtStyle         string `json:"artStyle"`
	ColorPalette     string `json:"colorPalette"`
	UIStyle          string `json:"uiStyle"`
	VisualReferences string `json:"visualReferences"`

	MusicStyle  string `json:"musicStyle"`
	SoundDesign string `json:"soundDesign"`
	VoiceActing string `json:"voiceActing"`

	Engine     string `json:"engine"`
	MinSpecs   string `json:"minSpecs"`
	TargetFPS  string `json:"targetFPS"`
	SaveSystem string `json:"saveSystem"`

	BusinessModel      string `json:"businessModel"`
	PricingStrategy    string `json:"pricingStrategy"`
	DLCPlans           string `json:"dlcPlans"`
	TargetLaunchDate   string `json:"targetLaunchDate"`
	MarketingChannels  string `json:"marketingChannels"`
	CompetitorAnalysis string `json:"competitorAnalysis"`
}

// GDDResult is what the generation gateway produces for a form.
type GDDResult struct {
	DocumentText  string `json:"gddText"`
	DiagramSource string `json:"mermaidChartCode"`
	TableMarkup   string `json:"mathTableHTML"`
}
