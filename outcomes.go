package journeytrace

import "github.com/vincentbai/journeytrace/internal/models"

const (
	resultSuccess = "success"
	resultFail    = "fail"

	keyMethod = "method"
	keyPrice  = "price"
	keyTerm   = "term"
)

// OutcomeOption adds optional detail to a stock outcome.
type OutcomeOption func(*models.Event)

func WithMethod(method string) OutcomeOption {
	return func(e *models.Event) { e.Set(keyMethod, method) }
}

func WithPrice(price string) OutcomeOption {
	return func(e *models.Event) { e.Set(keyPrice, price) }
}

func WithTerm(term string) OutcomeOption {
	return func(e *models.Event) { e.Set(keyTerm, term) }
}

func WithDetails(details string) OutcomeOption {
	return func(e *models.Event) { e.Set(models.KeyDetails, details) }
}

func (c *Client) stockOutcome(superOutcome, outcome, result string, opts []OutcomeOption) error {
	event := models.NewEvent(
		models.KeySuperOutcome, superOutcome,
		models.KeyOutcome, outcome,
		models.KeyResult, result,
	)
	for _, opt := range opts {
		opt(event)
	}
	return c.addOutcome(event)
}

// Lead capture

func (c *Client) LeadCaptured(specifier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Lead Capture", specifier, resultSuccess, opts)
}

func (c *Client) LeadCaptureDeclined(specifier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Lead Capture", specifier, resultFail, opts)
}

// Account signup

func (c *Client) AccountSignup(viaFlow string, opts ...OutcomeOption) error {
	return c.stockOutcome("Account Signup", viaFlow, resultSuccess, opts)
}

func (c *Client) AccountSignupDeclined(viaFlow string, opts ...OutcomeOption) error {
	return c.stockOutcome("Account Signup", viaFlow, resultFail, opts)
}

// Application installation

func (c *Client) ApplicationInstalled(opts ...OutcomeOption) error {
	return c.stockOutcome("Application Installation", "Installed", resultSuccess, opts)
}

func (c *Client) ApplicationNotInstalled(opts ...OutcomeOption) error {
	return c.stockOutcome("Application Installation", "Not Installed", resultFail, opts)
}

// Subscriptions. Use WithMethod, WithPrice and WithTerm for the payment
// details.

func (c *Client) InitialSubscription(tier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Initial Subscription", "Subscribe - "+tier, resultSuccess, opts)
}

func (c *Client) SubscriptionDeclined(tier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Initial Subscription", "Decline - "+tier, resultFail, opts)
}

func (c *Client) SubscriptionRenewed(tier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Subscription Renewal", "Renew - "+tier, resultSuccess, opts)
}

func (c *Client) SubscriptionCanceled(tier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Subscription Renewal", "Cancel - "+tier, resultFail, opts)
}

func (c *Client) SubscriptionUpsold(tier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Subscription Upsold", "Upsold - "+tier, resultSuccess, opts)
}

func (c *Client) SubscriptionUpsellDeclined(tier string, opts ...OutcomeOption) error {
	return c.stockOutcome("Subscription Upsold", "Declined - "+tier, resultFail, opts)
}

// Referrals

func (c *Client) Referral(kind string, opts ...OutcomeOption) error {
	return c.stockOutcome("Referral", "Referred - "+kind, resultSuccess, opts)
}

func (c *Client) ReferralDeclined(kind string, opts ...OutcomeOption) error {
	return c.stockOutcome("Referral", "Declined - "+kind, resultFail, opts)
}

// Ecommerce

func (c *Client) ProductAddedToCart(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Add Product To Cart", "Add - "+product, resultSuccess, opts)
}

func (c *Client) ProductNotAddedToCart(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Add Product To Cart", "Ignore - "+product, resultFail, opts)
}

func (c *Client) Upsold(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Upsold Product", "Upsold - "+product, resultSuccess, opts)
}

func (c *Client) UpsellDismissed(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Upsold Product", "Dismissed - "+product, resultFail, opts)
}

func (c *Client) CheckedOut(opts ...OutcomeOption) error {
	return c.stockOutcome("Customer Checkout", "Checked Out", resultSuccess, opts)
}

func (c *Client) CheckoutCanceled(opts ...OutcomeOption) error {
	return c.stockOutcome("Customer Checkout", "Canceled", resultFail, opts)
}

func (c *Client) ProductRemoved(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Customer Checkout", "Product Removed - "+product, resultFail, opts)
}

func (c *Client) Purchased(method string, opts ...OutcomeOption) error {
	return c.stockOutcome("Customer Purchase", "Purchase - "+method, resultSuccess, opts)
}

// PurchaseCanceled records a canceled purchase; method may be empty.
func (c *Client) PurchaseCanceled(method string, opts ...OutcomeOption) error {
	outcome := "Canceled"
	if method != "" {
		outcome += " - " + method
	}
	return c.stockOutcome("Customer Purchase", outcome, resultFail, opts)
}

func (c *Client) PromiseFulfilled(opts ...OutcomeOption) error {
	return c.stockOutcome("Promise Fulfillment", "Fulfilled", resultSuccess, opts)
}

func (c *Client) PromiseUnfulfilled(opts ...OutcomeOption) error {
	return c.stockOutcome("Promise Fulfillment", "Unfulfilled", resultFail, opts)
}

func (c *Client) ProductKept(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Product Disposition", "Kept - "+product, resultSuccess, opts)
}

func (c *Client) ProductReturned(product string, opts ...OutcomeOption) error {
	return c.stockOutcome("Product Disposition", "Returned - "+product, resultFail, opts)
}
