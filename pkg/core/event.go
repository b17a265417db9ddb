package core

import (
	"fmt"
	"time"
)

// EventKind classifies a detected change.
type EventKind string

const (
	EventNewListing    EventKind = "new-listing"
	EventWalletReceive EventKind = "wallet-receive"
	EventVolumeSpike   EventKind = "volume-spike"
)

// Attribute names carried in Entity.Attrs by the resource adapters.
const (
	AttrMarket      = "market"
	AttrKoreanName  = "korean_name"
	AttrEnglishName = "english_name"

	AttrWallet       = "wallet"
	AttrHash         = "hash"
	AttrFrom         = "from"
	AttrTokenName    = "token_name"
	AttrTokenSymbol  = "token_symbol"
	AttrContract     = "contract"
	AttrAmount       = "amount"
	AttrTransferTime = "transfer_time"

	AttrAddress = "address"
)

// Entity is one upstream record normalized to a stable key. Value is only
// meaningful for scalar resources.
type Entity struct {
	Key   string
	Value float64
	Attrs map[string]string
}

// Attr returns the named attribute or fallback when it is missing or empty.
func (e Entity) Attr(name, fallback string) string {
	if v := e.Attrs[name]; v != "" {
		return v
	}
	return fallback
}

// Event is a change detected between a fresh fetch and the stored snapshot.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Resource string    `json:"resource"`
	Key      string    `json:"key"`
	Entity   Entity    `json:"entity"`
	Previous float64   `json:"previous,omitempty"`
	Time     time.Time `json:"time"`
}

// Summary is the one-line plain text form used by the journal and /alerts.
func (e Event) Summary() string {
	switch e.Kind {
	case EventNewListing:
		return fmt.Sprintf("NEW LISTING: %s (%s)", e.Key, e.Entity.Attr(AttrEnglishName, "-"))
	case EventWalletReceive:
		return fmt.Sprintf("WALLET RECEIVE: %s %s -> %s (tx %s)",
			e.Entity.Attr(AttrAmount, "?"),
			e.Entity.Attr(AttrTokenSymbol, e.Entity.Attr(AttrContract, "?")),
			e.Entity.Attr(AttrWallet, e.Resource),
			e.Key)
	case EventVolumeSpike:
		return fmt.Sprintf("VOLUME SPIKE: %s %.2f -> %.2f", e.Entity.Attr(AttrAddress, e.Key), e.Previous, e.Entity.Value)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Key)
	}
}
