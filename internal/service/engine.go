package service

// Engine bundles the engine's services behind one handle:
// generate -> purchase -> draw -> redeem, plus round queries and reset.
type Engine struct {
	GenerateService
	PurchaseService
	DrawService
	RedeemService
	RoundService
}

// NewEngine builds every service on the same dependencies.
func NewEngine(d Deps) *Engine {
	d = d.normalize()
	return &Engine{
		GenerateService: NewGenerateService(d),
		PurchaseService: NewPurchaseService(d),
		DrawService:     NewDrawService(d),
		RedeemService:   NewRedeemService(d),
		RoundService:    NewRoundService(d),
	}
}
