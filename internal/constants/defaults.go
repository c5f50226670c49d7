package constants

// Default server configuration values
const (
	DefaultServerPort            = 8080
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Query engine page limits
const (
	DefaultPageLimit = 100
	MinPageLimit     = 1
	MaxPageLimit     = 500
)

// Database retry configuration
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxMs          = 30000
	DefaultMaxAttempts           = 5
)

// Discord client configuration
const (
	DefaultHistoryPageSize       = 100
	DefaultRESTRequestsPerSecond = 40
	DefaultRESTBurst             = 5
	DefaultHTTPTimeoutSec        = 30
	DefaultGatewayReconnectMaxSec = 60
)

// Input validation bounds
const (
	MaxMessageIDLength  = 32
	MaxAuthorNameLength = 255
)
