package constants

// Context Keys
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "token"
)

// HTTP and API constants
const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "

	// Response Keys
	ResponseError   = "error"
	ResponseMessage = "message"
)

// Serial number scopes and formatting
const (
	SequenceScopeSale = "sale"
	SequenceScopeRent = "rent"
	SalePrefix        = "SALE"
	RentPrefix        = "RENT"
	SequencePadWidth  = 3
)

// Query limits
const (
	DefaultPageSize     = 50
	MaxPageSize         = 1000
	DistinctValuesLimit = 10000
	SQLConsoleRowLimit  = 1000
	BulkInsertBatchSize = 500

	PublicRecordsDefaultLimit = 100
)
