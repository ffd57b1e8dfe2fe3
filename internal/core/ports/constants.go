package ports

import "time"

const (
	QuoteTTL           = 240 * time.Second // How long a quote can back a submission
	MaxListedOrders    = 50                // Cap for the unfiltered order listing
	CurrencyDecimals   = 2                 // Display precision for USDC and quoted LBC amounts
	DefaultOrderExpiry = 30 * time.Minute  // Offset from creation after which a pending order is stale
)
