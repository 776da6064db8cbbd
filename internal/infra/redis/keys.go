package redis

import "strconv"

const (
	// PrefixRoundPrizes caches the committed prize batch of a round.
	// A batch never changes once written, so the entry only goes away on reset.
	PrefixRoundPrizes = "lotto:prizes:"
	// PrefixDrawLock marks a draw in flight (SET NX + TTL). The draw_log unique
	// index stays the authority; the lock only absorbs duplicate clicks.
	PrefixDrawLock = "lotto:draw:lock:"
)

// RoundPrizesKey: lotto:prizes:{round}
func RoundPrizesKey(round int) string { return PrefixRoundPrizes + strconv.Itoa(round) }

// DrawLockKey: lotto:draw:lock:{round}
func DrawLockKey(round int) string { return PrefixDrawLock + strconv.Itoa(round) }
