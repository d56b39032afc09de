package response

// Business codes. The code is the stable contract with clients; the message
// is free to change or be localized.
const (
	CodeSuccess = 0
	CodeError   = 1

	// Session module 100xx
	ErrSessionNotFound   = 10001
	ErrNotSessionOwner   = 10002
	ErrInvalidTransition = 10003

	// Discount module 200xx
	ErrCouponNotFound   = 20001
	ErrCouponInactive   = 20002
	ErrCouponExpired    = 20003
	ErrCouponExhausted  = 20004
	ErrReferralNotFound = 20005
	ErrSelfReferral     = 20006

	// Cron / reminder module 400xx
	ErrCronUnauthorized = 40001
	ErrCronRunBusy      = 40002

	// System 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrTokenInvalid    = 50004
	ErrNoPermission    = 50005
)
