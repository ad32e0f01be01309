package domain

// TransferRecord is the journal row written after a committed transfer.
// Amounts are decimal strings of base units so every backend stores them
// without precision loss.
type TransferRecord struct {
	TransferID string // deterministic hash
	Sender     string // base58
	Recipient  string // base58

	Amount     string // requested amount
	NetAmount  string // credited to recipient
	TotalFee   string // schedule rate applied to amount
	Reflection string // reflection leg
	Liquidity  string // liquidity leg
	Marketing  string // marketing leg
	Burned     string // burn leg

	RatePct          uint64 // effective percent rate, surcharge included
	SurchargeApplied bool

	ExecutedAt int64 // unix millis
}

// PolicyChange kinds.
const (
	PolicyChangeFeature   = "FEATURE"
	PolicyChangeFees      = "FEES"
	PolicyChangeLimits    = "LIMITS"
	PolicyChangeBlacklist = "BLACKLIST"
	PolicyChangeExclusion = "EXCLUSION"
	PolicyChangeTrading   = "TRADING"
	PolicyChangePause     = "PAUSE"
)

// PolicyChange is the journal row written after a committed policy mutation.
type PolicyChange struct {
	ChangeID string // deterministic hash
	Kind     string // PolicyChange* constant
	Actor    string // base58 caller
	Subject  string // affected address for blacklist/exclusion, else empty
	Detail   string // JSON before/after payload

	ChangedAt int64 // unix millis
}
