package domain

// RefundPolicy controls whether cancellations may issue refunds.
type RefundPolicy string

const (
	// RefundPolicyNo disables refunds entirely.
	RefundPolicyNo RefundPolicy = "No"
	// RefundPolicyYes allows refunds to be issued manually.
	RefundPolicyYes RefundPolicy = "Yes"
	// RefundPolicyAuto issues refunds automatically on cancellation.
	RefundPolicyAuto RefundPolicy = "Auto"
)

// Valid reports whether the policy is one of the known values.
func (p RefundPolicy) Valid() bool {
	switch p {
	case RefundPolicyNo, RefundPolicyYes, RefundPolicyAuto:
		return true
	}
	return false
}

// Settings carries the module-level registration settings. It is resolved at
// startup and injected into services, so business logic never reads
// process-wide state and tests can construct any combination directly.
type Settings struct {
	AllowRefunds      RefundPolicy
	HideMemberPricing bool
}

// RefundsEnabled reports whether refunds are allowed at all.
func (s Settings) RefundsEnabled() bool { return s.AllowRefunds != RefundPolicyNo && s.AllowRefunds != "" }

// AutoRefundEnabled reports whether cancellations should refund automatically.
func (s Settings) AutoRefundEnabled() bool { return s.AllowRefunds == RefundPolicyAuto }
