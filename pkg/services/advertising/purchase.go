package advertising

import (
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
)

// ReasonPrefix starts the reason of every advertisement debit
const ReasonPrefix = "Advertisement: "

// PurchaseAd charges cost for an ad titled adTitle and counts the ad in
// the same transform, so the debit and adsCreated never disagree.
// A short balance fails with INSUFFICIENT_BALANCE and w is left as is.
func PurchaseAd(l *ledger.Ledger, w *entities.Wallet, cost int64, adTitle string) (*entities.Wallet, error) {
	next, err := l.Debit(w, cost, ReasonPrefix+adTitle)
	if err != nil {
		return nil, err
	}
	next.AdsCreated++
	return next, nil
}
