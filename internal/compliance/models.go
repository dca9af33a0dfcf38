package compliance

import (
	"time"

	id "remitpool/pkg/domain"
)

// AccountRecord is the per-account compliance state. Records are created
// implicitly on first allowlist addition; delisting clears the allow flag and
// the custom limit but leaves historical usage buckets in place.
type AccountRecord struct {
	Account          id.AccountID
	Allowlisted      bool
	Blocklisted      bool
	CustomDailyLimit uint64 // 0 = inherit the default daily limit
}

// Status is the queryable compliance tuple for one account.
type Status struct {
	Account        id.AccountID
	Allowlisted    bool
	Blocklisted    bool
	UsedToday      uint64
	EffectiveLimit uint64
}

// DayBucket maps an instant to its calendar-day accumulator key,
// floor(unix / 86400). All usage accounting and limit checks share this
// bucketing.
func DayBucket(t time.Time) int64 {
	return t.Unix() / 86400
}
